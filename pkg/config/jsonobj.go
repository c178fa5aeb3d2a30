/*
Copyright 2026 The Hydrus Go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// settings is a decoded JSON config object, with key-level tracking of
// what was actually asked for so unread/misspelled keys can be reported as
// errors rather than silently ignored.
type settings struct {
	m       map[string]interface{}
	touched map[string]bool
	errs    []error
}

var envRef = regexp.MustCompile(`\$\{[A-Za-z0-9_]+\}`)

// readSettingsFile decodes path as JSON, expanding any "${VAR}" references
// found in string values against the process environment.
func readSettingsFile(path string) (settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return settings{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return settings{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	expandEnvRefs(decoded)
	return settings{m: decoded, touched: make(map[string]bool)}, nil
}

func expandEnvRefs(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			m[k] = envRef.ReplaceAllStringFunc(val, func(ref string) string {
				return os.Getenv(ref[2 : len(ref)-1])
			})
		case map[string]interface{}:
			expandEnvRefs(val)
		case []interface{}:
			for i, elem := range val {
				if sub, ok := elem.(map[string]interface{}); ok {
					expandEnvRefs(sub)
				} else if s, ok := elem.(string); ok {
					val[i] = envRef.ReplaceAllStringFunc(s, func(ref string) string {
						return os.Getenv(ref[2 : len(ref)-1])
					})
				}
			}
		}
	}
}

func (s settings) note(key string) { s.touched[key] = true }

func (s *settings) fail(format string, args ...interface{}) {
	s.errs = append(s.errs, fmt.Errorf(format, args...))
}

// requireStr returns key's string value, recording an error if it is
// absent or the wrong type.
func (s *settings) requireStr(key string) string {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		s.fail("config: missing required key %q", key)
		return ""
	}
	str, ok := v.(string)
	if !ok {
		s.fail("config: key %q must be a string, got %T", key, v)
		return ""
	}
	return str
}

// strOr returns key's string value, or def if the key is absent.
func (s *settings) strOr(key, def string) string {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		s.fail("config: key %q must be a string, got %T", key, v)
		return def
	}
	return str
}

// intOr returns key's integer value, or def if the key is absent.
func (s *settings) intOr(key string, def int) int {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		s.fail("config: key %q must be a number, got %T", key, v)
		return def
	}
	return int(f)
}

// boolOr returns key's boolean value, or def if the key is absent.
func (s *settings) boolOr(key string, def bool) bool {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		s.fail("config: key %q must be a boolean, got %T", key, v)
		return def
	}
	return b
}

// strListOr returns key's list-of-strings value, or nil if the key is
// absent.
func (s *settings) strListOr(key string) []string {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		s.fail("config: key %q must be a list, got %T", key, v)
		return nil
	}
	out := make([]string, len(raw))
	for i, elem := range raw {
		str, ok := elem.(string)
		if !ok {
			s.fail("config: key %q index %d must be a string, got %T", key, i, elem)
			return nil
		}
		out[i] = str
	}
	return out
}

// objectList returns key's value as a list of nested settings objects,
// e.g. the "folders" and "thread_watchers" arrays.
func (s *settings) objectList(key string) []settings {
	s.note(key)
	v, ok := s.m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		s.fail("config: key %q must be a list, got %T", key, v)
		return nil
	}
	out := make([]settings, 0, len(raw))
	for _, elem := range raw {
		m, ok := elem.(map[string]interface{})
		if !ok {
			s.fail("config: key %q contains a non-object entry", key)
			continue
		}
		out = append(out, settings{m: m, touched: make(map[string]bool)})
	}
	return out
}

// validate reports every collected field error, plus any top-level key
// that was never asked for by name (a likely typo in the config file).
func (s *settings) validate() error {
	for k := range s.m {
		if s.touched[k] || strings.HasPrefix(k, "_") {
			continue
		}
		s.fail("config: unknown key %q", k)
	}
	if len(s.errs) == 0 {
		return nil
	}
	if len(s.errs) == 1 {
		return s.errs[0]
	}
	msgs := make([]string, len(s.errs))
	for i, e := range s.errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("multiple config errors: %s", strings.Join(msgs, "; "))
}
