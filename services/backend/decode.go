package backend

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/volatiletech/null/v8"
)

// Shape is the layout a collection payload arrived in.
type Shape int

const (
	// ShapeEmpty is valid JSON holding no array at all.
	ShapeEmpty Shape = iota
	// ShapeArray is a bare JSON array.
	ShapeArray
	// ShapeWrapped is an object whose "data" property is an array, optionally with "total" and "meta".
	ShapeWrapped
	// ShapeKeyed is an object whose first array-valued property holds the records.
	ShapeKeyed
)

var shapeNames = map[Shape]string{
	ShapeEmpty:   "empty",
	ShapeArray:   "array",
	ShapeWrapped: "wrapped",
	ShapeKeyed:   "keyed",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// Collection is a normalized list payload.
type Collection struct {
	Shape Shape
	Items []json.RawMessage
	// Key is the property the items were read from (ShapeWrapped and ShapeKeyed only).
	Key string
	// Total is the server-side count, when the payload carries one.
	Total null.Int
	Meta  json.RawMessage
}

// Len is the number of items held.
func (c Collection) Len() int {
	return len(c.Items)
}

// DecodeError reports a payload that is not JSON.
type DecodeError struct {
	Body string
}

func (e *DecodeError) Error() string {
	body := e.Body
	if len(body) > 64 {
		body = body[:64] + "..."
	}
	return fmt.Sprintf("malformed payload: %q", body)
}

// DecodeCollection normalizes body: a bare array is used as is, else the "data" array,
// else the first array-valued property. Anything else decodes to an empty collection.
func DecodeCollection(body []byte) (Collection, error) {
	if !gjson.ValidBytes(body) {
		return Collection{}, &DecodeError{Body: string(body)}
	}

	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		return Collection{Shape: ShapeArray, Items: rawItems(root)}, nil

	case root.IsObject():
		if data := root.Get("data"); data.IsArray() {
			col := Collection{Shape: ShapeWrapped, Key: "data", Items: rawItems(data)}
			if total := root.Get("total"); total.Type == gjson.Number {
				col.Total = null.IntFrom(int(total.Int()))
			}
			if meta := root.Get("meta"); meta.Exists() {
				col.Meta = json.RawMessage(meta.Raw)
			}
			return col, nil
		}

		var col Collection
		root.ForEach(func(key, value gjson.Result) bool {
			if value.IsArray() {
				col = Collection{Shape: ShapeKeyed, Key: key.String(), Items: rawItems(value)}
				return false
			}
			return true
		})
		if col.Shape == ShapeKeyed {
			return col, nil
		}
	}
	return Collection{Shape: ShapeEmpty, Items: []json.RawMessage{}}, nil
}

func rawItems(arr gjson.Result) []json.RawMessage {
	elems := arr.Array()
	items := make([]json.RawMessage, 0, len(elems))
	for _, elem := range elems {
		items = append(items, json.RawMessage(elem.Raw))
	}
	return items
}

// DecodeItems unmarshals every item of col into a T.
func DecodeItems[T any](col Collection) ([]T, error) {
	records := make([]T, 0, len(col.Items))
	for i, raw := range col.Items {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, errors.Wrapf(err, "decoding item %d", i)
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeRecord unmarshals a single resource into result, unwrapping it from a `data` object if needed.
func DecodeRecord(body []byte, result interface{}) error {
	if !gjson.ValidBytes(body) {
		return &DecodeError{Body: string(body)}
	}
	raw := body
	if data := gjson.GetBytes(body, "data"); data.IsObject() {
		raw = []byte(data.Raw)
	}
	return errors.Wrap(json.Unmarshal(raw, result), "decoding record")
}
