// Echo is the reference webwright plug-in: it reads {"text": "..."} on stdin
// and writes {"success": true, "result": "..."}.
package main

import (
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type input struct {
	Text   string `json:"text"`
	Repeat int    `json:"repeat"`
}

type output struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var in input
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		_ = json.NewEncoder(os.Stdout).Encode(output{Error: err.Error()})
		os.Exit(1)
	}
	_ = json.NewEncoder(os.Stdout).Encode(output{Success: true, Result: echo(in)})
}

func echo(in input) string {
	n := max(in.Repeat, 1)
	out := in.Text
	for range n - 1 {
		out += " " + in.Text
	}
	return out
}
