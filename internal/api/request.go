package api

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/joestump/newswire/internal/upload"
)

const multipartMemory = 8 << 20

// isJSON reports whether the request body is declared as JSON.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeBody reads a JSON body into v, or parses a multipart/urlencoded form
// and hands its values to fromForm. It returns the uploaded file under
// fileField, if any.
func decodeBody(r *http.Request, v any, fromForm func(get func(string) string), fileField string) (*upload.File, error) {
	if isJSON(r) {
		return nil, json.NewDecoder(r.Body).Decode(v)
	}
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}
	fromForm(func(key string) string { return strings.TrimSpace(r.FormValue(key)) })
	if fileField == "" || r.MultipartForm == nil {
		return nil, nil
	}
	if files := r.MultipartForm.File[fileField]; len(files) > 0 {
		return upload.FromMultipart(files[0]), nil
	}
	return nil, nil
}
