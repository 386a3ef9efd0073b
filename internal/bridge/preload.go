package bridge

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/bytedance/sonic"
)

// Endpoint is the websocket path the preload connects to.
const Endpoint = "/ipc"

//go:embed preload.js.tmpl
var preloadSource string

var preloadTemplate = template.Must(template.New("preload").Parse(preloadSource))

// Preload renders the browser shim defining window.shellAPI.
func (b *Bridge) Preload() (string, error) {
	bindings, err := sonic.Marshal(b.bindings)
	if err != nil {
		return "", fmt.Errorf("encode bindings: %w", err)
	}
	endpoint, _ := sonic.Marshal(Endpoint)
	global, _ := sonic.Marshal(GlobalName)

	var buf bytes.Buffer
	err = preloadTemplate.Execute(&buf, map[string]string{
		"Bindings": string(bindings),
		"Endpoint": string(endpoint),
		"Global":   string(global),
	})
	if err != nil {
		return "", fmt.Errorf("render preload: %w", err)
	}
	return buf.String(), nil
}
