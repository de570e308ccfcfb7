// Package mcfg implements declarative configuration parameters which can be
// registered onto an mcmp.Component and later populated from a Source (e.g.
// the process environment), in the style used throughout this module for
// every tunable named in the element configuration surface.
package mcfg

import (
	"encoding/json"
	"strings"

	"github.com/mediocregopher/atom/mcmp"
)

// Param is a single configuration parameter, registered onto a Component via
// one of the typed constructors below (String, Int, ...).
type Param struct {
	Component *mcmp.Component
	Name      string
	Usage     string
	Required  bool
	IsString  bool
	Into      interface{}
}

// ParamOption configures a Param at registration time.
type ParamOption func(*Param)

// ParamUsage sets the Param's human-readable usage string.
func ParamUsage(usage string) ParamOption {
	return func(p *Param) { p.Usage = usage }
}

// ParamRequired marks the Param as required: Populate returns an error if no
// Source provides a value for it.
func ParamRequired() ParamOption {
	return func(p *Param) { p.Required = true }
}

// ParamDefault sets the default value a Param will hold if no Source
// provides one. The type of def must match the Param's Into pointer type.
func ParamDefault(def interface{}) ParamOption {
	return func(p *Param) {
		switch into := p.Into.(type) {
		case *string:
			*into = def.(string)
		case *int:
			*into = def.(int)
		case *bool:
			*into = def.(bool)
		}
	}
}

type paramsKey int

func addParam(cmp *mcmp.Component, p Param) {
	existing, _ := cmp.Value(paramsKey(0)).([]Param)
	cmp.SetValue(paramsKey(0), append(existing, p))
}

func localParams(cmp *mcmp.Component) []Param {
	params, _ := cmp.Value(paramsKey(0)).([]Param)
	return params
}

// CollectParams gathers all Params registered (via String/Int/Bool) on cmp
// and recursively on all of its descendants.
func CollectParams(cmp *mcmp.Component) []Param {
	var out []Param
	mcmp.Visit(cmp, func(c *mcmp.Component) {
		out = append(out, localParams(c)...)
	})
	return out
}

// FullName joins a Param's Component path and Name the way SourceEnv expects
// to see it, e.g. Component path ["cam0"] and Name "addr" becomes
// "cam0-addr".
func FullName(p Param) string {
	return strings.Join(append(append([]string{}, p.Component.Path()...), p.Name), "-")
}

// String registers a string Param on cmp and returns a pointer which will
// hold its final value once Populate is called on cmp (or an ancestor).
func String(cmp *mcmp.Component, name string, opts ...ParamOption) *string {
	s := new(string)
	p := Param{Component: cmp, Name: name, IsString: true, Into: s}
	for _, o := range opts {
		o(&p)
	}
	addParam(cmp, p)
	return s
}

// Int registers an int Param on cmp.
func Int(cmp *mcmp.Component, name string, opts ...ParamOption) *int {
	i := new(int)
	p := Param{Component: cmp, Name: name, Into: i}
	for _, o := range opts {
		o(&p)
	}
	addParam(cmp, p)
	return i
}

// Bool registers a bool Param on cmp.
func Bool(cmp *mcmp.Component, name string, opts ...ParamOption) *bool {
	b := new(bool)
	p := Param{Component: cmp, Name: name, Into: b}
	for _, o := range opts {
		o(&p)
	}
	addParam(cmp, p)
	return b
}

func (p Param) unmarshal(raw json.RawMessage) error {
	return json.Unmarshal(raw, p.Into)
}

func (p Param) fuzzyParse(v string) json.RawMessage {
	switch p.Into.(type) {
	case *bool:
		if v == "" || v == "0" || strings.EqualFold(v, "false") {
			return json.RawMessage("false")
		}
		return json.RawMessage("true")
	case *string:
		if v == "" || v[0] != '"' {
			return json.RawMessage(`"` + v + `"`)
		}
		return json.RawMessage(v)
	default:
		return json.RawMessage(v)
	}
}
