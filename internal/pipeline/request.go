package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/obiente/translate/scribe/internal/media"
)

const DefaultLanguage = "he"

// Request is the input envelope of a transcription job. Absent fields take
// their defaults; fields explicitly set to false or "" are kept as given.
type Request struct {
	FileURL    string `json:"file_url,omitempty"`
	YouTubeURL string `json:"yt_url,omitempty"`
	Language   string `json:"language"`
	Diarize    bool   `json:"diarize"`
	VAD        bool   `json:"vad"`
}

// NewRequest returns a Request with every option at its default.
func NewRequest() Request {
	return Request{
		Language: DefaultLanguage,
		Diarize:  true,
		VAD:      true,
	}
}

func (r *Request) UnmarshalJSON(b []byte) error {
	type alias Request
	a := alias(NewRequest())
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*r = Request(a)
	return nil
}

// ParseRequest decodes a job envelope. Both the bare envelope and the
// {"input": {...}} wrapper used by serverless job queues are accepted.
func ParseRequest(raw []byte) (Request, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Request{}, errors.New("missing input")
	}

	fields, err := object(raw)
	if err != nil {
		return Request{}, err
	}
	if input, ok := fields["input"]; ok {
		input = bytes.TrimSpace(input)
		if len(input) == 0 || string(input) == "null" {
			return Request{}, errors.New("missing input")
		}
		if fields, err = object(input); err != nil {
			return Request{}, err
		}
		raw = input
	}
	// An empty envelope carries nothing to process.
	if len(fields) == 0 {
		return Request{}, errors.New("missing input")
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func object(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return fields, nil
}

func (r Request) Validate() error {
	if r.FileURL == "" && r.YouTubeURL == "" {
		return errors.New("Provide either file_url or yt_url.")
	}
	return nil
}

// Source returns the media to acquire. The YouTube URL takes precedence.
func (r Request) Source() media.Source {
	if r.YouTubeURL != "" {
		return media.Source{YouTubeURL: r.YouTubeURL}
	}
	return media.Source{FileURL: r.FileURL}
}
