package modelfetch

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	SourceTypeHuggingface = "huggingface"
	SourceTypeDirect      = "direct"
	SourceTypeFile        = "file"
)

type Source struct {
	Type     string
	Location string
	// SubFolder selects a folder inside a Hugging Face repo.
	SubFolder string
}

// ParseSource accepts "hf:<owner>/<repo>[/<subfolder>]", an http(s) URL or a
// local path ("file:" prefix optional).
func ParseSource(source string) (*Source, error) {
	source = strings.TrimSpace(source)

	switch {
	case source == "":
		return nil, fmt.Errorf("empty model source")
	case strings.HasPrefix(source, "hf:"):
		location := strings.Trim(strings.TrimPrefix(source, "hf:"), "/")
		parts := strings.SplitN(location, "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid huggingface source %q, expected hf:<owner>/<repo>", source)
		}

		s := &Source{Type: SourceTypeHuggingface, Location: parts[0] + "/" + parts[1]}
		if len(parts) == 3 {
			s.SubFolder = parts[2]
		}
		return s, nil
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		if _, err := url.Parse(source); err != nil {
			return nil, fmt.Errorf("invalid model url: %w", err)
		}
		return &Source{Type: SourceTypeDirect, Location: source}, nil
	case strings.HasPrefix(source, "file:"):
		return &Source{Type: SourceTypeFile, Location: strings.TrimPrefix(source, "file:")}, nil
	}

	return &Source{Type: SourceTypeFile, Location: source}, nil
}

// Filename is the artifact name a direct download is saved under.
func (s *Source) Filename() string {
	if s.Type != SourceTypeDirect {
		return path.Base(s.Location)
	}

	u, err := url.Parse(s.Location)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "model.onnx"
	}

	return path.Base(u.Path)
}

// repoFolderName converts "owner/repo" to the hub cache name "models--owner--repo".
func repoFolderName(repoID string) string {
	return strings.Join(append([]string{"models"}, strings.Split(repoID, "/")...), "--")
}
