package image

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

// ClassifyStatus turns a non-2xx upstream status into a failed result.
func ClassifyStatus(vendor string, status int) domain.GenerationResult {
	switch status {
	case http.StatusPaymentRequired:
		return domain.Failure(domain.KindPaymentRequired, domain.MsgPaymentRequired)
	case http.StatusTooManyRequests:
		return domain.Failure(domain.KindRateLimited, domain.MsgRateLimited)
	default:
		return domain.Failure(domain.KindUpstream, fmt.Sprintf("%s API error: %d", vendor, status))
	}
}

// Collect converts upstream URLs into a successful result. An upstream that
// legitimately produced nothing yields an empty, non-nil image list; callers
// on the client side decide how to treat that.
func Collect(urls []string) domain.GenerationResult {
	images := make([]domain.ImageRef, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, domain.ImageRef{URL: u})
		}
	}
	return domain.Success(images)
}

// DataURL encodes raw image bytes as a data: URL.
func DataURL(mime string, data []byte) string {
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
