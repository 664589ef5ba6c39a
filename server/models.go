package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelInfo is one entry in the /v1/models listing, OpenAI-compatible.
type ModelInfo struct {
	ID          string `json:"id" yaml:"id"`
	Object      string `json:"object" yaml:"-"`
	Created     int64  `json:"created" yaml:"created"`
	OwnedBy     string `json:"owned_by" yaml:"owned_by"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// ModelsResponse is the wire shape of the model listing.
type ModelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ModelCatalog holds the models advertised by /v1/models. The catalog is
// read once at startup and immutable afterwards.
type ModelCatalog struct {
	models []ModelInfo
}

type catalogFile struct {
	Models []ModelInfo `yaml:"models"`
}

// LoadCatalog reads the catalog from a YAML file. When path is empty or
// the file does not exist, a single-entry catalog for the active model is
// returned instead, so the endpoint always has something to advertise.
func LoadCatalog(path, activeModel string) (*ModelCatalog, error) {
	if path == "" {
		return defaultCatalog(activeModel), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultCatalog(activeModel), nil
		}
		return nil, fmt.Errorf("server: failed to read model catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("server: failed to parse model catalog: %w", err)
	}
	if len(file.Models) == 0 {
		return defaultCatalog(activeModel), nil
	}

	for i := range file.Models {
		file.Models[i].Object = "model"
		if file.Models[i].Created == 0 {
			file.Models[i].Created = time.Now().Unix()
		}
	}
	return &ModelCatalog{models: file.Models}, nil
}

func defaultCatalog(activeModel string) *ModelCatalog {
	if activeModel == "" {
		activeModel = "flux.1-kontext"
	}
	return &ModelCatalog{models: []ModelInfo{{
		ID:      activeModel,
		Object:  "model",
		Created: time.Now().Unix(),
		OwnedBy: "black-forest-labs",
	}}}
}

// List returns all catalog entries.
func (c *ModelCatalog) List() []ModelInfo {
	return c.models
}

// Get returns the entry with the given ID.
func (c *ModelCatalog) Get(id string) (ModelInfo, bool) {
	for _, m := range c.models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
