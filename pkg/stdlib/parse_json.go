package stdlib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/thomasrohde/jsfn/pkg/diagnostics"
	"github.com/thomasrohde/jsfn/pkg/evaluator"
)

func newJSON() *evaluator.Object {
	return namespace(
		native("parse", 1, stdlibParseJSON),
		native("stringify", 1, stdlibStringifyJSON),
	)
}

// JSON.parse(text) → any; object keys keep their source order
func stdlibParseJSON(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	text := evaluator.ToString(call.Args.Get(0))
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	val, err := decodeValue(dec)
	if err == nil {
		if _, extra := dec.Token(); !errors.Is(extra, io.EOF) {
			err = fmt.Errorf("unexpected data after JSON value")
		}
	}
	if err != nil {
		return nil, &evaluator.RuntimeError{
			Code:    diagnostics.ESyntax,
			Message: fmt.Sprintf("JSON.parse: %s", err.Error()),
			Span:    call.Span,
		}
	}
	return val, nil
}

func decodeValue(dec *json.Decoder) (evaluator.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unexpected end of JSON input")
		}
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return evaluator.NewNull(), nil
	case bool:
		return evaluator.NewBool(t), nil
	case string:
		return evaluator.NewString(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return evaluator.NewNumber(f), nil
	case json.Delim:
		switch t {
		case '[':
			var items []evaluator.Value
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // ']'
				return nil, err
			}
			return evaluator.NewArray(items), nil
		case '{':
			obj := evaluator.NewObject(nil)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // '}'
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// JSON.stringify(value) → string, or undefined for undefined and functions
func stdlibStringifyJSON(ctx context.Context, call *evaluator.NativeCall) (evaluator.Value, error) {
	v := call.Args.Get(0)
	switch v.(type) {
	case evaluator.Undefined, *evaluator.Function, *evaluator.NativeFunction:
		return evaluator.NewUndefined(), nil
	}
	b, err := evaluator.ValueToJSON(v)
	if err != nil {
		return nil, typeErr(call, "JSON.stringify: %s", err.Error())
	}
	return evaluator.NewString(string(b)), nil
}
