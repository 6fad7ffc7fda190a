package cliargs

import (
	"fmt"
	"strings"

	"github.com/ForteScarlet/codex-kkp/internal/codex"
)

// quotedValue is a string flag whose value goes through ParseQuotedValue.
type quotedValue struct {
	dst *string
}

func (v *quotedValue) String() string {
	if v.dst == nil {
		return ""
	}
	return *v.dst
}

func (v *quotedValue) Set(s string) error {
	*v.dst = ParseQuotedValue(s)
	return nil
}

func (v *quotedValue) Type() string { return "string" }

// imagesValue appends every occurrence. Commas are part of the path.
type imagesValue struct {
	dst *[]string
}

func (v *imagesValue) String() string {
	if v.dst == nil {
		return ""
	}
	return strings.Join(*v.dst, ",")
}

func (v *imagesValue) Set(s string) error {
	*v.dst = append(*v.dst, ParseQuotedValue(s))
	return nil
}

func (v *imagesValue) Type() string { return "path" }

type sandboxValue struct {
	dst *codex.SandboxMode
}

func (v *sandboxValue) String() string {
	if v.dst == nil {
		return ""
	}
	return string(*v.dst)
}

func (v *sandboxValue) Set(s string) error {
	mode, err := codex.ParseSandboxMode(ParseQuotedValue(s))
	if err != nil {
		return err
	}
	*v.dst = mode
	return nil
}

func (v *sandboxValue) Type() string { return "mode" }

// boolValue accepts only true or false, case-insensitively.
type boolValue struct {
	dst *bool
}

func (v *boolValue) String() string {
	if v.dst == nil {
		return "false"
	}
	return fmt.Sprint(*v.dst)
}

func (v *boolValue) Set(s string) error {
	switch strings.ToLower(ParseQuotedValue(s)) {
	case "true":
		*v.dst = true
	case "false":
		*v.dst = false
	default:
		return fmt.Errorf("Invalid boolean value: %s. Expected: true or false", s)
	}
	return nil
}

func (v *boolValue) Type() string { return "bool" }
