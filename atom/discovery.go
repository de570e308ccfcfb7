package atom

import (
	"context"
	"sort"

	"github.com/mediocregopher/atom/mdb/mredis"
)

// EnumerateElements implements the "enumerate all elements" discovery
// helper (section 4.8): scan command:*, strip the prefix, dedupe, sort.
func EnumerateElements(wire *mredis.Wire) ([]string, *Error) {
	seen := map[string]bool{}
	cursor := "0"
	for {
		page, err := wire.Scan(cursor, "command:*")
		if err != nil {
			return nil, WrapRedis(err)
		}
		for _, key := range page.Keys {
			if el, ok := ElementFromCommandKey(key); ok {
				seen[el] = true
			}
		}
		cursor = page.Cursor
		if cursor == "0" {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for el := range seen {
		out = append(out, el)
	}
	sort.Strings(out)
	return out, nil
}

// EnumerateStreams implements the "enumerate all streams" discovery helper
// (section 4.8): scan stream:*, optionally filtered to one owning element.
// element == "" means no filter.
func EnumerateStreams(wire *mredis.Wire, element string) ([]string, *Error) {
	pattern := "stream:*"
	if element != "" {
		pattern = "stream:" + element + ":*"
	}

	var out []string
	cursor := "0"
	for {
		page, err := wire.Scan(cursor, pattern)
		if err != nil {
			return nil, WrapRedis(err)
		}
		out = append(out, page.Keys...)
		cursor = page.Cursor
		if cursor == "0" {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// EnumerateCommands implements "enumerate commands of an element" by
// invoking its built-in command_list command (section 4.8).
func (e *Element) EnumerateCommands(ctx context.Context, target string) ([]CommandInfo, *Error) {
	resp, derr := e.SendCommand(ctx, target, "command_list", nil, MethodNone, true, 0)
	if derr != nil {
		return nil, derr
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	var infos []CommandInfo
	if err := Decode(MethodMsgpack, resp.Data, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}
