package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// catalogFile is the on-disk shape of both catalog files:
// {"servers": {"<id>": {...}}}.
type catalogFile struct {
	Servers map[string]*fileEntry `json:"servers"`
}

// fileEntry is one server definition as stored on disk. Transport kind is
// inferred: entries with a url are http, entries with a command are stdio.
type fileEntry struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	URL            string            `json:"url,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Enabled        *bool             `json:"enabled,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
}

func (e *fileEntry) toConfig(id string, custom bool) *ServerConfig {
	cfg := &ServerConfig{
		ID:             id,
		Name:           e.Name,
		Description:    e.Description,
		Command:        e.Command,
		Args:           e.Args,
		Env:            e.Env,
		URL:            e.URL,
		Headers:        e.Headers,
		Enabled:        true,
		TimeoutSeconds: e.TimeoutSeconds,
		IsCustom:       custom,
	}
	if e.Enabled != nil {
		cfg.Enabled = *e.Enabled
	}
	if e.URL != "" {
		cfg.Transport = TransportHTTP
	} else {
		cfg.Transport = TransportStdio
	}
	return cfg
}

func entryFromConfig(cfg *ServerConfig) *fileEntry {
	e := &fileEntry{
		Name:           cfg.Name,
		Description:    cfg.Description,
		Command:        cfg.Command,
		Args:           cfg.Args,
		Env:            cfg.Env,
		URL:            cfg.URL,
		Headers:        cfg.Headers,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}
	if !cfg.Enabled {
		enabled := false
		e.Enabled = &enabled
	}
	return e
}

// readCatalogFile parses one catalog file into configs.
func readCatalogFile(path string, custom bool) ([]*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", path, err)
	}

	out := make([]*ServerConfig, 0, len(file.Servers))
	for id, entry := range file.Servers {
		out = append(out, entry.toConfig(id, custom))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// writeCatalogFile atomically rewrites path with the given configs.
// The file is written next to its destination and renamed into place so a
// crash mid-write never leaves a truncated catalog.
func writeCatalogFile(path string, configs []*ServerConfig) error {
	file := catalogFile{Servers: make(map[string]*fileEntry, len(configs))}
	for _, cfg := range configs {
		file.Servers[cfg.ID] = entryFromConfig(cfg)
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
