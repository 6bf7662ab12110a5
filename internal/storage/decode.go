package storage

import (
	"fmt"
)

// Decode builds a backend from its descriptor. The "type" field selects
// DirectoryStorage (the default) or ArchiveStorage, also accepted under the
// name GetarStorage.
func Decode(desc map[string]any) (Storage, error) {
	typ, err := stringField(desc, "type")
	if err != nil {
		return nil, err
	}
	group, err := stringField(desc, "group")
	if err != nil {
		return nil, err
	}
	switch typ {
	case "", "DirectoryStorage":
		root, err := stringField(desc, "root")
		if err != nil {
			return nil, err
		}
		return NewDirectory(root, group)
	case "ArchiveStorage", "GetarStorage":
		target, err := stringField(desc, "target")
		if err != nil {
			return nil, err
		}
		if target == "" {
			return nil, fmt.Errorf("storage %s: missing target", typ)
		}
		return NewArchive(target, group)
	}
	return nil, fmt.Errorf("unknown storage type %q", typ)
}

// FromLocation picks ArchiveStorage for recognized archive suffixes and
// DirectoryStorage otherwise.
func FromLocation(location string) (Storage, error) {
	if IsArchive(location) {
		return NewArchive(location, "")
	}
	return NewDirectory(location, "")
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("storage field %q must be a string, got %T", key, v)
	}
	return s, nil
}
