package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"classcal/internal/model"
)

// The persisted document is a single object mapping each key to its list
// of {subject, time, teacher} records. Go maps do not keep insertion
// order, so both codecs walk the object member by member.

// EncodeJSON renders days as an indented JSON object in canonical order.
func EncodeJSON(days []model.DayClasses) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range days {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d.Key)
		if err != nil {
			return nil, err
		}
		classes := d.Classes
		if classes == nil {
			classes = []model.ClassRecord{}
		}
		v, err := json.Marshal(classes)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// DecodeJSON parses a JSON document keeping member order. A key that
// appears twice has its lists concatenated.
func DecodeJSON(data []byte) ([]model.DayClasses, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("decode schedule: document is not an object")
	}

	var days []model.DayClasses
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode schedule: unexpected token %v", tok)
		}
		var classes []model.ClassRecord
		if err := dec.Decode(&classes); err != nil {
			return nil, fmt.Errorf("decode schedule: key %q: %w", key, err)
		}
		days = appendDay(days, key, classes)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode schedule: trailing data after document")
	}
	return days, nil
}

// EncodeYAML renders days as a YAML mapping in canonical order.
func EncodeYAML(days []model.DayClasses) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, d := range days {
		var value yaml.Node
		classes := d.Classes
		if classes == nil {
			classes = []model.ClassRecord{}
		}
		if err := value.Encode(classes); err != nil {
			return nil, err
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: d.Key},
			&value,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeYAML parses a YAML mapping keeping key order. An empty document
// decodes to an empty schedule.
func DecodeYAML(data []byte) ([]model.DayClasses, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("decode schedule: document is not a mapping")
	}

	var days []model.DayClasses
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		var classes []model.ClassRecord
		if err := root.Content[i+1].Decode(&classes); err != nil {
			return nil, fmt.Errorf("decode schedule: key %q: %w", key, err)
		}
		days = appendDay(days, key, classes)
	}
	return days, nil
}

func appendDay(days []model.DayClasses, key string, classes []model.ClassRecord) []model.DayClasses {
	for i := range days {
		if days[i].Key == key {
			days[i].Classes = append(days[i].Classes, classes...)
			return days
		}
	}
	return append(days, model.DayClasses{Key: key, Classes: classes})
}
