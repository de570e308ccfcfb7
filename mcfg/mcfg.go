package mcfg

import (
	"os"
	"strings"

	"github.com/mediocregopher/atom/mcmp"
	"github.com/mediocregopher/atom/mctx"
	"github.com/mediocregopher/atom/merr"
)

// ParamValue is a Param name/value pair as parsed out by a Source.
type ParamValue struct {
	Path  []string
	Name  string
	Value []byte
}

// Source parses ParamValues relevant to the Params registered (recursively)
// on cmp.
type Source interface {
	Parse(cmp *mcmp.Component, params []Param) ([]ParamValue, error)
}

// SourceEnv is a Source which reads configuration from the process
// environment. A Param under Component path []string{"cam0"} named "addr" is
// expected as the environment variable CAM0_ADDR (optionally prefixed, see
// Prefix).
type SourceEnv struct {
	// Env holds the key=value pairs to parse; defaults to os.Environ().
	Env []string

	// Prefix, if set, must prefix every expected variable name, e.g. "ATOM".
	Prefix string
}

func (s *SourceEnv) expectedName(path []string, name string) string {
	parts := append(append([]string{}, path...), name)
	out := strings.Join(parts, "_")
	if s.Prefix != "" {
		out = s.Prefix + "_" + out
	}
	return strings.ToUpper(strings.ReplaceAll(out, "-", "_"))
}

// Parse implements Source.
func (s *SourceEnv) Parse(cmp *mcmp.Component, params []Param) ([]ParamValue, error) {
	env := s.Env
	if env == nil {
		env = os.Environ()
	}

	byName := make(map[string]Param, len(params))
	for _, p := range params {
		byName[s.expectedName(p.Component.Path(), p.Name)] = p
	}

	var pvs []ParamValue
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		p, ok := byName[k]
		if !ok {
			continue
		}
		pvs = append(pvs, ParamValue{
			Path:  p.Component.Path(),
			Name:  p.Name,
			Value: p.fuzzyParse(v),
		})
	}
	return pvs, nil
}

func paramKey(path []string, name string) string {
	return strings.Join(path, "\x00") + "\x00" + name
}

// Populate uses src (or, if nil, an empty set of values -- only defaults and
// required-ness are honored) to fill every Param registered on cmp and its
// descendants.
func Populate(cmp *mcmp.Component, src Source) error {
	params := CollectParams(cmp)

	pM := make(map[string]Param, len(params))
	for _, p := range params {
		pM[paramKey(p.Component.Path(), p.Name)] = p
	}

	var pvs []ParamValue
	if src != nil {
		var err error
		if pvs, err = src.Parse(cmp, params); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(pvs))
	for _, pv := range pvs {
		key := paramKey(pv.Path, pv.Name)
		p, ok := pM[key]
		if !ok {
			continue
		}
		if err := p.unmarshal(pv.Value); err != nil {
			return merr.Wrap(err, mctx.Annotated("param", key))
		}
		seen[key] = true
	}

	for key, p := range pM {
		if p.Required && !seen[key] {
			return merr.New("required parameter is not set",
				mctx.Annotated("param", key))
		}
	}

	return nil
}
