package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-scorer/internal/pipeline"
)

// printJSON writes v indented by two spaces followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode output")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "write output")
	}
	return nil
}

// writeError reports err as {"error": "<message>"}.
func writeError(w io.Writer, err error) {
	_ = printJSON(w, pipeline.ErrorSection{Error: err.Error()})
}
