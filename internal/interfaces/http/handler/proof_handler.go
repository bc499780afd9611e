package handler

import (
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	orderapp "github.com/valveaudio/backend/internal/application/order"
	"github.com/valveaudio/backend/internal/domain/shared"
	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// maxProofFileBytes caps a single uploaded proof image. The service enforces
// the same cap; the handler stops oversized bodies before buffering them.
const maxProofFileBytes = 5 << 20

// ProofHandler handles customer transfer-proof uploads
type ProofHandler struct {
	BaseHandler
	proofs *orderapp.ProofService
}

// NewProofHandler creates a new ProofHandler
func NewProofHandler(proofs *orderapp.ProofService) *ProofHandler {
	return &ProofHandler{proofs: proofs}
}

// RegisterRoutes registers proof upload routes
func (h *ProofHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/order/upload-proof/:code", h.Upload)
}

// Upload accepts a multipart submission of transfer proof images plus an
// optional note. Authorized by the tracking token in the t query parameter.
func (h *ProofHandler) Upload(c *gin.Context) {
	var uri dto.CodeRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.BadRequest(c, "Order code is required")
		return
	}

	token := c.Query("t")
	if token == "" {
		h.NotFound(c)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.BadRequest(c, "Invalid multipart payload")
		return
	}

	files := form.File["images"]
	note := c.PostForm("note")

	uploads, err := readProofFiles(files)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.proofs.Submit(c.Request.Context(), uri.Code, token, uploads, note)
	if err != nil {
		h.HandleGuestError(c, err)
		return
	}

	h.Created(c, resp)
}

// readProofFiles buffers the uploaded parts, refusing any single file over
// the size cap before it is read into memory.
func readProofFiles(files []*multipart.FileHeader) ([]orderapp.ProofUpload, error) {
	uploads := make([]orderapp.ProofUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxProofFileBytes {
			return nil, shared.ErrPayloadTooLarge
		}

		f, err := fh.Open()
		if err != nil {
			return nil, shared.ErrInvalidInput
		}
		data, err := io.ReadAll(io.LimitReader(f, maxProofFileBytes+1))
		f.Close()
		if err != nil {
			return nil, shared.ErrInvalidInput
		}
		if int64(len(data)) > maxProofFileBytes {
			return nil, shared.ErrPayloadTooLarge
		}

		uploads = append(uploads, orderapp.ProofUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}
