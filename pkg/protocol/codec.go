// Package protocol implements the JSON command codec spoken on the TCP
// command port, the MQTT command topic and the HTTP command endpoint.
//
// A command is one JSON object whose "type" selects the variant:
//
//	{"type":"set_pixel","pixel":0,"color":[1.0,0.0,0.0]}
//	{"type":"set_all","color":[0.0,0.0,1.0]}
//	{"type":"off"}
//
// Every command is answered with exactly one line, "OK" or "ERROR: <message>".
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"

	"github.com/urmzd/treelights/pkg/device"
	"github.com/urmzd/treelights/pkg/device/schema"
)

// Field shapes. Channel range and the pixel upper bound are checked by the
// device.
var (
	pixelSchema = json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "integer",
		"minimum": 0
	}`)

	colorSchema = json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "array",
		"items": {"type": "number"},
		"minItems": 3,
		"maxItems": 3
	}`)
)

type field struct {
	name   string
	schema json.RawMessage
}

var variants = map[device.Kind][]field{
	device.KindSetPixel: {{"pixel", pixelSchema}, {"color", colorSchema}},
	device.KindSetAll:   {{"color", colorSchema}},
	device.KindOff:      nil,
}

// Codec decodes command payloads. It is safe for concurrent use.
type Codec struct {
	validator *schema.Validator
}

// NewCodec creates a Codec that checks field shapes with v, registering the
// field schemas on it. A nil v gets a private validator.
func NewCodec(v *schema.Validator) *Codec {
	if v == nil {
		v = schema.NewValidator()
	}
	for _, fields := range variants {
		for _, f := range fields {
			v.MustRegister(schemaName(f.name), f.schema)
		}
	}
	return &Codec{validator: v}
}

func schemaName(field string) string {
	return "command." + field
}

var defaultCodec = NewCodec(nil)

// Decode decodes payload with the package-level codec.
func Decode(payload []byte) (device.Command, error) {
	return defaultCodec.Decode(payload)
}

// Decode parses one JSON command document. Failures are *Error values
// wrapping ErrMalformed, ErrUnknownType or ErrMissingField.
func (c *Codec) Decode(payload []byte) (device.Command, error) {
	doc, err := parseObject(payload)
	if err != nil {
		return device.Command{}, &Error{Kind: ErrMalformed, Detail: err}
	}

	rawType, ok := doc["type"]
	if !ok {
		return device.Command{}, &Error{Kind: ErrUnknownType}
	}
	typ, ok := rawType.(string)
	if !ok {
		return device.Command{}, &Error{Kind: ErrUnknownType, Type: fmt.Sprint(rawType)}
	}
	kind := device.Kind(typ)
	fields, ok := variants[kind]
	if !ok {
		return device.Command{}, &Error{Kind: ErrUnknownType, Type: typ}
	}

	for _, f := range fields {
		v, ok := doc[f.name]
		if !ok || v == nil {
			return device.Command{}, &Error{Kind: ErrMissingField, Field: f.name}
		}
		if err := c.validator.Validate(schemaName(f.name), v); err != nil {
			return device.Command{}, &Error{Kind: ErrMissingField, Field: f.name, Detail: err}
		}
	}

	cmd := device.Command{Kind: kind}
	if kind == device.KindSetPixel {
		idx, err := toIndex(doc["pixel"])
		if err != nil {
			return device.Command{}, &Error{Kind: ErrMissingField, Field: "pixel", Detail: err}
		}
		cmd.Pixel = idx
	}
	if kind == device.KindSetPixel || kind == device.KindSetAll {
		color, err := toColor(doc["color"])
		if err != nil {
			return device.Command{}, &Error{Kind: ErrMissingField, Field: "color", Detail: err}
		}
		cmd.Color = color
	}
	return cmd, nil
}

// parseObject decodes exactly one JSON object, keeping numbers as
// json.Number so integer checks see the literal the client sent.
func parseObject(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON document")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("command must be a JSON object")
	}
	return obj, nil
}

// toIndex accepts any non-negative integral number, including exponent
// forms such as 1e1. Values past the largest uint saturate so the device
// reports them as out of range.
func toIndex(v any) (uint, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("unexpected %T", v)
	}
	r, ok := new(big.Rat).SetString(n.String())
	if !ok || !r.IsInt() {
		return 0, fmt.Errorf("not a pixel index: %s", n)
	}
	if r.Sign() < 0 {
		return 0, errors.New("negative index")
	}
	if num := r.Num(); num.IsUint64() && num.Uint64() <= math.MaxUint {
		return uint(num.Uint64()), nil
	}
	return math.MaxUint, nil
}

func toColor(v any) (device.RGB, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return device.RGB{}, errors.New("color must have three channels")
	}
	var c device.RGB
	for i, ch := range arr {
		n, ok := ch.(json.Number)
		if !ok {
			return device.RGB{}, fmt.Errorf("channel %d is %T", i, ch)
		}
		f, err := n.Float64()
		if err != nil {
			return device.RGB{}, fmt.Errorf("channel %d: %w", i, err)
		}
		c[i] = f
	}
	return c, nil
}

// wireCommand is the JSON shape of a command.
type wireCommand struct {
	Type  string     `json:"type"`
	Pixel *uint      `json:"pixel,omitempty"`
	Color *[3]float64 `json:"color,omitempty"`
}

// EncodeCommand renders cmd as a single JSON document without a trailing
// newline.
func EncodeCommand(cmd device.Command) ([]byte, error) {
	w := wireCommand{Type: string(cmd.Kind)}
	switch cmd.Kind {
	case device.KindSetPixel:
		idx := cmd.Pixel
		color := [3]float64(cmd.Color)
		w.Pixel = &idx
		w.Color = &color
	case device.KindSetAll:
		color := [3]float64(cmd.Color)
		w.Color = &color
	case device.KindOff:
	default:
		return nil, fmt.Errorf("%w: %q", device.ErrUnknownCommand, string(cmd.Kind))
	}
	return json.Marshal(w)
}
