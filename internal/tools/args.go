// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Args holds validated, typed tool arguments with defaults applied
type Args map[string]interface{}

// Int returns an integer argument or 0
func (a Args) Int(name string) int {
	if v, ok := a[name].(int); ok {
		return v
	}
	return 0
}

// String returns a string argument or ""
func (a Args) String(name string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return ""
}

// Strings returns a string list argument
func (a Args) Strings(name string) []string {
	if v, ok := a[name].([]string); ok {
		return v
	}
	return nil
}

// decodeArguments parses the model's raw JSON arguments
func decodeArguments(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]interface{}{}, nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}

// bindArgs coerces and validates raw parameters against the spec
func bindArgs(spec Spec, raw map[string]interface{}, v *validator.Validate) (Args, error) {
	args := make(Args, len(spec.Params))
	for _, p := range spec.Params {
		value, present := raw[p.Name]
		if !present || value == nil {
			if p.Required {
				return nil, fmt.Errorf("missing required parameter %q", p.Name)
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}

		coerced, err := coerce(p, value)
		if err != nil {
			return nil, err
		}
		if len(p.Enum) > 0 {
			if err := checkEnum(p, coerced); err != nil {
				return nil, err
			}
			if s, ok := coerced.(string); ok {
				coerced = strings.ToLower(s)
			}
		}
		if p.Rule != "" {
			if err := v.Var(coerced, p.Rule); err != nil {
				return nil, fmt.Errorf("parameter %q violates %q", p.Name, p.Rule)
			}
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func coerce(p Param, value interface{}) (interface{}, error) {
	switch p.Type {
	case TypeInteger:
		switch n := value.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("parameter %q must be an integer", p.Name)
			}
			return int(n), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("parameter %q must be an integer", p.Name)
			}
			return i, nil
		}
	case TypeNumber:
		switch n := value.(type) {
		case float64:
			return n, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err == nil {
				return f, nil
			}
		}
	case TypeString:
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s), nil
		}
		if n, ok := value.(float64); ok {
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		}
	case TypeArray:
		switch items := value.(type) {
		case string:
			return []string{strings.TrimSpace(items)}, nil
		case []interface{}:
			out := make([]string, 0, len(items))
			for _, item := range items {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("parameter %q must be a list of strings", p.Name)
				}
				out = append(out, strings.TrimSpace(s))
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("parameter %q must be of type %s", p.Name, p.Type)
}

func checkEnum(p Param, value interface{}) error {
	values := []string{}
	switch v := value.(type) {
	case string:
		values = append(values, v)
	case []string:
		values = v
	}
	for _, val := range values {
		ok := false
		for _, allowed := range p.Enum {
			if strings.EqualFold(val, allowed) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("parameter %q must be one of %s", p.Name, strings.Join(p.Enum, ", "))
		}
	}
	return nil
}
