package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/thereceipt/escpos-driver/internal/layout"
)

// input is either a structured receipt or a markup document
type input struct {
	receipt  *layout.Receipt
	document string
}

// loadInput reads a file path or an http(s) URL. A .json name holds a
// receipt, or a {"receipt": ...} request body; anything else is markup.
func loadInput(pathOrURL string) (input, error) {
	data, err := readPathOrURL(pathOrURL)
	if err != nil {
		return input{}, err
	}

	if !strings.EqualFold(path.Ext(pathOrURL), ".json") {
		return input{document: string(data)}, nil
	}

	var wrapped struct {
		Receipt *layout.Receipt `json:"receipt"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Receipt != nil {
		return input{receipt: wrapped.Receipt}, nil
	}

	var r layout.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return input{}, fmt.Errorf("failed to parse receipt: %w", err)
	}
	return input{receipt: &r}, nil
}

func readPathOrURL(pathOrURL string) ([]byte, error) {
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		data, err := os.ReadFile(pathOrURL)
		if err != nil {
			return nil, fmt.Errorf("failed to read receipt file: %w", err)
		}
		return data, nil
	}

	resp, err := http.Get(pathOrURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch receipt: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt from URL: %w", err)
	}
	return data, nil
}
