package sse

import (
	"bufio"
	"io"
	"strings"
)

// ReadEvents parses a server-sent event stream and calls dispatch once per
// event. Multi-line data is joined with "\n" and comment lines are skipped.
// It returns io.EOF when the stream ends.
func ReadEvents(r io.Reader, dispatch func(name string, data []byte)) error {
	reader := bufio.NewReader(r)

	var (
		name    string
		data    []string
		hasData bool
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				dispatch(name, []byte(strings.Join(data, "\n")))
			}
			name, data, hasData = "", nil, false
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
}
