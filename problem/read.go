package problem

import (
	"encoding"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v2"
)

// ReadSpec reads, decodes, and cleans up the spec at path. The format
// follows the extension: .toml, .yaml/.yml, or .json. Keys that don't
// correspond to a spec setting are rejected.
func ReadSpec(fs afero.Fs, path string) (*Spec, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "reading spec")
	}
	var s *Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		s, err = decodeTOML(data)
	case ".yaml", ".yml":
		s, err = decodeYAML(data)
	case ".json":
		s, err = decodeJSON(data)
	default:
		return nil, errors.Errorf("unknown spec format '%s' (want .toml, .yaml, .yml, or .json)", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	s.Path = path
	if err := s.Cleanup(); err != nil {
		return nil, errors.Wrapf(err, "spec %s", path)
	}
	return s, nil
}

func decodeTOML(data []byte) (*Spec, error) {
	var s Spec
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, err
	}
	// don't allow keys we haven't heard of
	undecodedKeys := md.Undecoded()
	if len(undecodedKeys) > 0 {
		keyNames := make([]string, len(undecodedKeys))
		for idx, key := range undecodedKeys {
			keyNames[idx] = strings.Join(key, ".")
		}
		return nil, errors.Errorf("undecoded keys: %s", strings.Join(keyNames, ", "))
	}
	return &s, nil
}

// decodeYAML decodes straight into the Spec rather than through a generic
// map: YAML 1.1 reads a bare "n" key as the boolean false, which only a
// string-typed struct key turns back into "n".
func decodeYAML(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeJSON(data []byte) (*Spec, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return decodeMap(raw)
}

// decodeMap fills a Spec from generically decoded JSON. Scalars are
// weakly typed, so "n": "10" works, and named values such as vector kinds
// go through their UnmarshalText.
func decodeMap(raw map[string]interface{}) (*Spec, error) {
	var s Spec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       textUnmarshalerHook,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &s, nil
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func textUnmarshalerHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || !reflect.PtrTo(to).Implements(textUnmarshalerType) {
		return data, nil
	}
	v := reflect.New(to)
	if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(reflect.ValueOf(data).String())); err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}
