package service

import (
	"fmt"
	"image"
	"time"

	"flux_backend/core"
	"flux_backend/imaging"
)

// ImageData is one produced image on the wire. Exactly one of URL and
// B64JSON is set, depending on the requested response format.
type ImageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Response is the wire shape for all three operations. Created is stamped
// once per response, not per image.
type Response struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// Assembler turns ordered generated images into a Response. URL-mode
// images are persisted through the store; inline images are base64 PNG.
type Assembler struct {
	store        *imaging.Store
	baseURL      string
	staticPrefix string

	// now is swappable for tests.
	now func() time.Time
}

// NewAssembler creates an Assembler persisting URL-mode images to store
// and building links from baseURL and staticPrefix.
func NewAssembler(store *imaging.Store, baseURL, staticPrefix string) *Assembler {
	return &Assembler{
		store:        store,
		baseURL:      baseURL,
		staticPrefix: staticPrefix,
		now:          time.Now,
	}
}

// Assemble builds the response for an ordered image list. Output index i
// always corresponds to input image i. revisedPrompts, when non-nil, is
// indexed the same way and carries the prompt actually submitted to the
// model (relevant for variation framing).
func (a *Assembler) Assemble(images []image.Image, format ResponseFormat, revisedPrompts []string) (*Response, error) {
	data := make([]ImageData, 0, len(images))

	for i, img := range images {
		var entry ImageData

		switch format {
		case FormatURL:
			locator, err := a.store.Save(img)
			if err != nil {
				return nil, core.ErrInternal(fmt.Errorf("failed to persist image %d: %w", i, err))
			}
			entry.URL = imaging.BuildURL(a.baseURL, a.staticPrefix, locator)
		case FormatB64JSON:
			encoded, err := imaging.EncodeBase64(img)
			if err != nil {
				return nil, core.ErrInternal(fmt.Errorf("failed to encode image %d: %w", i, err))
			}
			entry.B64JSON = encoded
		default:
			return nil, core.ErrInvalidParameters("unsupported response format %q", format)
		}

		if revisedPrompts != nil && i < len(revisedPrompts) {
			entry.RevisedPrompt = revisedPrompts[i]
		}
		data = append(data, entry)
	}

	return &Response{
		Created: a.now().Unix(),
		Data:    data,
	}, nil
}
