package api

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

// handleQR serves a QR code PNG of the chat page URL, for pairing a
// phone with the agent on the local network.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(s.publicURL, qrcode.Medium, 256)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	if _, err := w.Write(png); err != nil {
		s.logger.Debug("failed to write QR response", "error", err)
	}
}
