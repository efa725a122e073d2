package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/*.json
var schemasFS embed.FS

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*gojsonschema.Schema{}
)

func requestSchema(name string) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if s, ok := schemaCache[name]; ok {
		return s, nil
	}
	raw, err := schemasFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	schemaCache[name] = s
	return s, nil
}

// decodeBody validates the request body against the named schema and decodes it into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, schemaName string, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("read body: " + err.Error())
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return badRequest("request body is required")
	}
	if !json.Valid(raw) {
		return badRequest("request body is not valid JSON")
	}

	schema, err := requestSchema(schemaName)
	if err != nil {
		return err
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return badRequest("validate body: " + err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		sort.Strings(msgs)
		return badRequest(strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return badRequest("decode body: " + err.Error())
	}
	return nil
}
