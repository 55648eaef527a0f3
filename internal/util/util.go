// Package util provides utility functions for content hashing and front matter parsing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"

	"github.com/mmarkdown/mmark/v2/mast"
)

const DefaultLanguage = "es"

// FrontMatter is the %%% TOML header of an imported Markdown file.
type FrontMatter struct {
	*mast.TitleData
	// Kind is the document kind, "news" when empty.
	Kind string `toml:"kind"`
	// Featured is the path or URL of the featured image.
	Featured string `toml:"featured"`
	Consumed int    `toml:"-"`
}

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

func GetFrontMatter(md []byte) (*FrontMatter, error) {
	info, _, err := SplitFrontMatter(md)
	return info, err
}

// SplitFrontMatter parses the header of md and returns it with the Markdown
// body that follows it.
func SplitFrontMatter(md []byte) (*FrontMatter, []byte, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t\r")

	delimiter := []byte("%%%")

	if len(md) < 2*len(delimiter) {
		return nil, nil, fmt.Errorf("invalid front matter format")
	}

	first := bytes.Index(md[:len(delimiter)+1], delimiter)
	if first == -1 {
		return nil, nil, fmt.Errorf("invalid front matter format")
	}

	second := bytes.Index(md[first+len(delimiter):], delimiter)
	if second == -1 {
		return nil, nil, fmt.Errorf("invalid front matter format")
	}

	end := second + 2*len(delimiter) + 1
	if end > len(md) {
		return nil, nil, fmt.Errorf("invalid front matter format")
	}

	header := md[len(delimiter) : end-len(delimiter)-1]
	info := &FrontMatter{
		TitleData: &mast.TitleData{},
	}

	if _, err := toml.Decode(string(header), info); err != nil {
		return nil, nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	if info.Language == "" {
		info.Language = DefaultLanguage
	}
	info.Consumed = end

	return info, md[end:], nil
}
