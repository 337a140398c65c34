package api

// ShortLinkBody is the Firebase-compatible creation payload.
type ShortLinkBody struct {
	ShortLink   string   `doc:"The short link"                       example:"https://sho.rt/abc12"                   json:"shortLink"`
	PreviewLink string   `doc:"The short link with a preview flag"   example:"https://sho.rt/abc12?preview=true"      json:"previewLink"`
	Warning     []string `doc:"Non-fatal notices about the request"  json:"warning"`
}

// CreateShortLinkRequest is the request for creating a short link.
type CreateShortLinkRequest struct {
	Body struct {
		URL    string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url"`
		APIKey string `doc:"The tenant API key" example:"f9024a3b76f24b86a3b4359a2f5b4f4e"   json:"api_key"`
	}
}

// CreateShortLinkResponse is the response for a short-link creation request.
type CreateShortLinkResponse struct {
	Status int
	Body   ShortLinkBody
}

// ExpandRequest is the request for expanding a short link back to its
// destination.
type ExpandRequest struct {
	Body struct {
		ShortURL string `doc:"The short link or bare code" example:"https://sho.rt/abc12"                 json:"short_url"`
		APIKey   string `doc:"The tenant API key"          example:"f9024a3b76f24b86a3b4359a2f5b4f4e"     json:"api_key"`
	}
}

// ExpandResponse is the response for an expand request.
type ExpandResponse struct {
	Body struct {
		FullURL string `doc:"The original URL" example:"https://example.com/very/long/path" json:"full_url"`
	}
}

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc12" path:"code"`
}

// RedirectResponse carries the redirect status and destination.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The redirect destination" header:"Location"`
	}
}
