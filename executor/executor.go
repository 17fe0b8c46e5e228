// Package executor provides the in-process execution side of the registry:
// a Mux dispatches resources to type-specific handlers, the way an HTTP
// mux dispatches requests to routes. The registry core only defines the
// contract; this package supplies a usable default with handlers for plain
// text and JSON resources.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/resourcex/resourcex"
)

// NotSupportedError is returned when no handler is registered for a
// resource's type.
type NotSupportedError struct {
	Type string
}

func (err NotSupportedError) Error() string {
	return fmt.Sprintf("no handler registered for resource type %q", err.Type)
}

// Handler executes resources of a single type.
type Handler interface {
	Execute(ctx context.Context, req *resourcex.Execution) (interface{}, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *resourcex.Execution) (interface{}, error)

func (f HandlerFunc) Execute(ctx context.Context, req *resourcex.Execution) (interface{}, error) {
	return f(ctx, req)
}

// Mux routes executions to handlers by resource type. The zero value is
// not usable; construct instances with NewMux. Mux is safe for concurrent
// use once handler registration has finished.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewMux returns a mux with the built-in text and json handlers
// registered.
func NewMux() *Mux {
	m := &Mux{handlers: make(map[string]Handler)}
	m.Handle("text", HandlerFunc(executeText))
	m.Handle("prompt", HandlerFunc(executeText))
	m.Handle("json", HandlerFunc(executeJSON))
	return m
}

// Handle registers handler for resourceType, replacing any previous
// registration. It returns the mux for chaining.
func (m *Mux) Handle(resourceType string, handler Handler) *Mux {
	m.mu.Lock()
	m.handlers[resourceType] = handler
	m.mu.Unlock()
	return m
}

// Execute dispatches req to the handler registered for its type.
func (m *Mux) Execute(ctx context.Context, req *resourcex.Execution) (interface{}, error) {
	m.mu.RLock()
	handler, ok := m.handlers[req.Type]
	m.mu.RUnlock()
	if !ok {
		return nil, NotSupportedError{Type: req.Type}
	}
	return handler.Execute(ctx, req)
}

// entryFile selects the file an execution operates on: an explicit "file"
// argument wins, then a file named "content", then the sole file of a
// single-file resource.
func entryFile(req *resourcex.Execution) ([]byte, error) {
	if name, ok := req.Args["file"].(string); ok {
		content, ok := req.Files.Get(name)
		if !ok {
			return nil, fmt.Errorf("resource %s has no file %q", req.Locator, name)
		}
		return content, nil
	}
	if content, ok := req.Files.Get("content"); ok {
		return content, nil
	}
	if req.Files.Len() == 1 {
		return req.Files.Files()[0].Content, nil
	}
	return nil, fmt.Errorf("resource %s: ambiguous entry file, pass a \"file\" argument", req.Locator)
}

// executeText returns the entry file as a string, with {{key}} occurrences
// substituted from string-valued arguments.
func executeText(ctx context.Context, req *resourcex.Execution) (interface{}, error) {
	content, err := entryFile(req)
	if err != nil {
		return nil, err
	}
	text := string(content)
	for key, value := range req.Args {
		s, ok := value.(string)
		if !ok {
			continue
		}
		text = strings.ReplaceAll(text, "{{"+key+"}}", s)
	}
	return text, nil
}

// executeJSON decodes the entry file.
func executeJSON(ctx context.Context, req *resourcex.Execution) (interface{}, error) {
	content, err := entryFile(req)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(content, &decoded); err != nil {
		return nil, fmt.Errorf("resource %s: invalid json content: %w", req.Locator, err)
	}
	return decoded, nil
}
