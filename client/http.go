package client

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"Warpgate/internal/api"
)

// get performs a GET request and decodes the JSON response.
func (c *Client) get(path string, result any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	return decodeResponse(resp, result)
}

// post performs a signed POST request with a JSON body and decodes the JSON response.
func (c *Client) post(w *Wallet, path string, body any, result any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body:\n%w", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderSender, hex.EncodeToString(w.pubKey))
	req.Header.Set(api.HeaderSignature, hex.EncodeToString(w.sign(http.MethodPost, path, raw)))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s:\n%w", path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	return decodeResponse(resp, result)
}

// decodeResponse decodes a success body into result or returns an *APIError.
func decodeResponse(resp *http.Response, result any) error {
	if resp.StatusCode != http.StatusOK {
		var body api.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Kind == "" {
			return &APIError{Status: resp.StatusCode, Kind: "Unknown", Message: http.StatusText(resp.StatusCode)}
		}

		return &APIError{Status: resp.StatusCode, Kind: body.Kind, Message: body.Error}
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
