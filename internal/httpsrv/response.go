package httpsrv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// contentTypes is the fixed extension-to-MIME table.
// It is intentionally not delegated to a sniffing library: the table
// only needs to cover .html/.jpeg/.jpg, and a generic sniffer would
// produce richer, looser-fitting output than that (see DESIGN.md).
var contentTypes = map[string]string{
	".html": "text/html",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
}

const defaultContentType = "text/plain"

// Response is the populated result of resolving a Request against the
// document root. It owns ResourceFile and must be closed by the
// caller on every exit path.
type Response struct {
	Status        StatusCode
	Type          ResponseType
	Headers       Headers
	ResourceFile  *os.File
	ContentLength int64
	ContentType   string
}

// Close releases the resource file, if one was opened. Safe to call on
// a Response that never got as far as opening a file.
func (resp *Response) Close() error {
	if resp.ResourceFile == nil {
		return nil
	}
	return resp.ResourceFile.Close()
}

// BuildResponse runs the validation pipeline against
// req and returns a populated Response. It is grounded on
// get_http_response_from_request/formulate_full_response/
// formulate_simple_response in src/http.c.
func BuildResponse(req *Request, serverRoot string) *Response {
	resp := &Response{Status: StatusOK}
	resp.Type = Full
	if req.IsSimple() {
		resp.Type = Simple
	}

	if !validateMethod(req, resp) {
		return finalize(req, resp)
	}

	absPath, ok := resolvePath(req, serverRoot, resp)
	if !ok {
		return finalize(req, resp)
	}

	if !validateVersion(req, resp) {
		return finalize(req, resp)
	}

	openResource(absPath, resp)
	return finalize(req, resp)
}

// validateMethod mirrors validate_http_method.
func validateMethod(req *Request, resp *Response) bool {
	if req.Method == MethodUnknown {
		resp.Status = StatusBadRequest
		return false
	}
	if resp.Type == Simple && req.Method != MethodGet {
		resp.Status = StatusBadRequest
		return false
	}
	return true
}

// resolvePath mirrors validate_http_uri: it joins server_root with the
// resource location and name (remapping "/" to "/index.html"), then
// confines the result to server_root. Path-traversal confinement is
// a fix the source lacks entirely.
func resolvePath(req *Request, serverRoot string, resp *Response) (string, bool) {
	name := req.ResourceName
	if name == "/" {
		name = "/index.html"
	}

	joined := filepath.Join(serverRoot, req.ResourceLocation, name)
	cleanRoot := filepath.Clean(serverRoot)
	cleanJoined := filepath.Clean(joined)

	if cleanJoined != cleanRoot && !strings.HasPrefix(cleanJoined, cleanRoot+string(filepath.Separator)) {
		resp.Status = StatusNotFound
		return "", false
	}

	info, err := os.Stat(cleanJoined)
	if err != nil || info.IsDir() {
		resp.Status = StatusNotFound
		return "", false
	}

	f, err := os.Open(cleanJoined)
	if err != nil {
		resp.Status = StatusUnauthorized
		return "", false
	}
	f.Close()

	return cleanJoined, true
}

// validateVersion mirrors validate_http_version: Simple requests skip
// validation entirely; Full requests must be syntactically [1-9].[0-9]
// and then restricted to {1.0, 1.1}.
func validateVersion(req *Request, resp *Response) bool {
	if resp.Type == Simple {
		return true
	}

	if !syntacticallyValidVersion(req.Version) {
		resp.Status = StatusBadRequest
		return false
	}
	if req.Version != "1.0" && req.Version != "1.1" {
		resp.Status = StatusUnsupportedVer
		return false
	}
	return true
}

func syntacticallyValidVersion(v string) bool {
	if len(v) != 3 || v[1] != '.' {
		return false
	}
	return v[0] >= '1' && v[0] <= '9' && v[2] >= '0' && v[2] <= '9'
}

// openResource mirrors get_ressource_size: open read-only, stat for
// content length, and infer the content type.
func openResource(absPath string, resp *Response) {
	f, err := os.Open(absPath)
	if err != nil {
		resp.Status = StatusInternalError
		return
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		resp.Status = StatusInternalError
		return
	}

	resp.ResourceFile = f
	resp.ContentLength = info.Size()
	resp.ContentType = contentTypeFor(absPath)
}

// contentTypeFor mirrors get_ressource_content_type: a malformed
// extension (no '.') or an unrecognized one falls back to the default.
func contentTypeFor(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return defaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}

// finalize composes the status line and header block for the response
// type, mirroring formulate_full_response/formulate_simple_response.
func finalize(req *Request, resp *Response) *Response {
	if resp.Type == Simple {
		// A Simple response carries no status, no headers, body only
		// — the body-only rule is unconditional on status, so
		// a Simple error is indistinguishable from a closed
		// connection, by design (see DESIGN.md).
		return resp
	}

	if resp.Status != StatusOK {
		return resp
	}

	resp.Headers.Set("Content-length", fmt.Sprintf("%d", resp.ContentLength))
	resp.Headers.Set("Content-type", resp.ContentType)
	return resp
}

// ShuttingDownResponse builds the fixed 503 response the Monitor sends
// to every connection drained from the queue during shutdown, per
// get_server_shutting_down_response in src/http.c.
func ShuttingDownResponse() *Response {
	resp := &Response{Status: StatusServiceUnavailable, Type: Full}
	resp.Headers.Set("Connection", "close")
	resp.Headers.Set("Content-type", defaultContentType)
	return resp
}
