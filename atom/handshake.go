package atom

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// VersionInfo is the payload returned by every element's built-in version
// command (section 4.9).
type VersionInfo struct {
	Language string
	Version  string
}

// HealthCheck is overridable per element; the default always succeeds.
// Applications override it via RegisterCommand after NewElement by
// re-registering the "healthcheck" name before the command loop starts.
type HealthCheck func() *Error

func defaultHealthCheck() *Error { return nil }

// CommandInfo describes one registered command, as returned by the
// built-in command_list command (section 4.8's discovery helper).
type CommandInfo struct {
	Name        string
	Description string
}

// registerBuiltins installs the built-in commands every element
// implements: version and healthcheck (section 4.9), plus command_list
// (section 4.8's discovery helper for enumerating a remote element's
// commands).
func (e *Element) registerBuiltins() {
	e.commands["version"] = NewResponseOnlyCommand("version", "returns {language, version}", 0, func() (VersionInfo, *Error) {
		return VersionInfo{Language: e.LanguageTag, Version: e.VersionTag}, nil
	})
	e.commands["healthcheck"] = NewTriggerCommand("healthcheck", "returns success if the element is healthy", 0, defaultHealthCheck)
	e.commands["command_list"] = NewResponseOnlyCommand("command_list", "lists registered commands", 0, func() ([]CommandInfo, *Error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		out := make([]CommandInfo, 0, len(e.commands))
		for _, c := range e.commands {
			out = append(out, CommandInfo{Name: c.Name, Description: c.Description})
		}
		return out, nil
	})
}

// SetHealthCheck overrides the healthcheck command's behavior. Must be
// called before RunCommandLoop.
func (e *Element) SetHealthCheck(fn HealthCheck) *Error {
	return e.RegisterCommand(NewTriggerCommand("healthcheck", "returns success if the element is healthy", 0, func() *Error {
		return fn()
	}))
}

// minSupportedVersion is the empty minimum version: passed as
// RequireElementVersion's minVersion, it skips the version check, so any
// version passes.
const minSupportedVersion = ""

// RequireElementVersion is supplemented from original_source's
// checkElementVersion (cpp/inc/element.h): it validates that a remote
// element's advertised {language, version} satisfies a minimum version and
// belongs to an allowed set of languages, returning *InvalidCommand if not.
// languages may be left empty to accept any language tag.
func RequireElementVersion(info VersionInfo, minVersion string, languages ...string) *Error {
	if len(languages) > 0 {
		ok := false
		for _, l := range languages {
			if l == info.Language {
				ok = true
				break
			}
		}
		if !ok {
			return newKindError(KindInvalidCommand, "unsupported element language: "+info.Language)
		}
	}
	if minVersion != "" && compareVersions(info.Version, minVersion) < 0 {
		return newKindError(KindInvalidCommand, "element version "+info.Version+" is older than required "+minVersion)
	}
	return nil
}

// compareVersions does a dot-separated numeric comparison of two
// "x.y.z"-shaped version tags, returning -1/0/1. Non-numeric or ragged
// components compare as equal, keeping this a best-effort helper rather
// than a strict semver parser -- the wire format never guaranteed one.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil || an == bn {
			continue
		}
		if an < bn {
			return -1
		}
		return 1
	}
	return 0
}

// WaitForElementsHealthy implements wait_for_elements_healthy (section
// 4.9): it polls each named element's healthcheck at retryInterval until
// all return success or ctx is canceled.
func (e *Element) WaitForElementsHealthy(ctx context.Context, names []string, retryInterval time.Duration) *Error {
	pending := make(map[string]bool, len(names))
	for _, n := range names {
		pending[n] = true
	}

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for name := range pending {
			resp, derr := e.SendCommand(ctx, name, "healthcheck", nil, MethodNone, true, 0)
			if derr == nil && resp.Err == nil {
				delete(pending, name)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return newKindError(KindInternal, "wait_for_elements_healthy canceled: "+ctx.Err().Error())
		case <-ticker.C:
		}
	}
	return nil
}
