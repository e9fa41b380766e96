package prerender

import (
	"io"
	"net/http"
)

// Kind classifies how a prerender attempt concluded.
type Kind int

const (
	// Passthrough hands the request to the normal pipeline untouched.
	Passthrough Kind = iota
	// Redirect replays an upstream 3xx to the client.
	Redirect
	// Respond writes the rendered body to the client.
	Respond
	// Terminate ends the request with a 404.
	Terminate
	// Propagate surfaces an upstream failure to the client (debug mode).
	Propagate
)

func (k Kind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Redirect:
		return "redirect"
	case Respond:
		return "respond"
	case Terminate:
		return "terminate"
	case Propagate:
		return "propagate"
	default:
		return "unknown"
	}
}

// Outcome is a translated render-service response.
type Outcome struct {
	Kind     Kind
	Status   int
	Location string
	Response *http.Response
}

// hopHeaders are connection-scoped and never copied to the client.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Translate maps a render-service response to a client-facing outcome. With
// soft HTTP codes disabled, 3xx responses become explicit client redirects
// carrying the upstream status and Location verbatim; everything else is
// served as a rendered response. Soft mode serves every status verbatim.
func Translate(resp *http.Response, soft bool) Outcome {
	if !soft && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		resp.Body.Close()
		return Outcome{
			Kind:     Redirect,
			Status:   resp.StatusCode,
			Location: loc,
		}
	}
	return Outcome{
		Kind:     Respond,
		Status:   resp.StatusCode,
		Response: resp,
	}
}

// WriteRespond copies a rendered response to the client: upstream status,
// headers minus hop-by-hop ones, then the body.
func WriteRespond(w http.ResponseWriter, resp *http.Response) error {
	defer resp.Body.Close()

	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		header.Del(h)
	}

	w.WriteHeader(resp.StatusCode)
	_, err := io.Copy(w, resp.Body)
	return err
}
