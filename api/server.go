// Package api exposes the HTTP surface. Handlers validate and translate;
// all behavior lives in the core packages.
package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabfab/ragchat/chat"
	"github.com/fabfab/ragchat/ingestion"
	"github.com/fabfab/ragchat/vectorstore"
)

type Server struct {
	logger    *zap.Logger
	chatSvc   *chat.Service
	ingestSvc *ingestion.Service
	store     vectorstore.Store
	sessions  *chat.SessionStore
	engine    *gin.Engine
}

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	Role           string `json:"role"`
	ConversationID string `json:"conversation_id" binding:"required"`
	UseWebSearch   bool   `json:"use_web_search"`
}

type chatResponse struct {
	Response   string `json:"response"`
	UsedRAG    bool   `json:"used_rag"`
	UsedSearch bool   `json:"used_search"`
}

type uploadResponse struct {
	Success   bool   `json:"success"`
	DocID     string `json:"doc_id"`
	Filename  string `json:"filename"`
	NumChunks int    `json:"num_chunks"`
	Message   string `json:"message"`
}

type documentRecord struct {
	DocID       string `json:"doc_id"`
	Filename    string `json:"filename"`
	UploadDate  string `json:"upload_date"`
	TotalChunks int    `json:"total_chunks"`
}

type endSessionRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(logger *zap.Logger, chatSvc *chat.Service, ingestSvc *ingestion.Service, store vectorstore.Store, sessions *chat.SessionStore) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:    logger,
		chatSvc:   chatSvc,
		ingestSvc: ingestSvc,
		store:     store,
		sessions:  sessions,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))

	engine.GET("/healthz", s.handleHealth)
	engine.POST("/chat", s.handleChat)
	engine.POST("/upload-pdf", s.handleUploadPDF)
	engine.GET("/documents", s.handleListDocuments)
	engine.DELETE("/documents/:id", s.handleDeleteDocument)
	engine.POST("/end-session", s.handleEndSession)
	engine.POST("/reset", s.handleReset)

	return engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	resp, err := s.chatSvc.Turn(c.Request.Context(), chat.TurnRequest{
		Message:      req.Message,
		Role:         req.Role,
		SessionID:    req.ConversationID,
		UseWebSearch: req.UseWebSearch,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrSessionClosed) {
			status = http.StatusBadRequest
		}
		s.writeError(c, status, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:   resp.Response,
		UsedRAG:    resp.UsedRAG,
		UsedSearch: resp.UsedSearch,
	})
}

func (s *Server) handleUploadPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	conversationID := c.DefaultPostForm("conversation_id", "default")

	file, err := fileHeader.Open()
	if err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.ingestSvc.IngestPDF(c.Request.Context(), fileHeader.Filename, data, conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingestion.ErrUnsupportedFormat) || errors.Is(err, ingestion.ErrFileTooLarge) {
			status = http.StatusBadRequest
		}
		s.writeError(c, status, err)
		return
	}

	s.sessions.GetOrCreate(conversationID).AttachDocument(result.DocID)

	c.JSON(http.StatusOK, uploadResponse{
		Success:   true,
		DocID:     result.DocID.String(),
		Filename:  result.Filename,
		NumChunks: result.ChunkCount,
		Message:   "Successfully processed " + result.Filename,
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.store.ListDocuments(c.Request.Context())
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}

	if conversationID := c.Query("conversation_id"); conversationID != "" {
		if conv, ok := s.sessions.Get(conversationID); ok {
			attached := make(map[uuid.UUID]struct{}, len(conv.DocumentIDs))
			for _, id := range conv.DocumentIDs {
				attached[id] = struct{}{}
			}
			filtered := docs[:0]
			for _, doc := range docs {
				if _, ok := attached[doc.DocID]; ok {
					filtered = append(filtered, doc)
				}
			}
			docs = filtered
		}
	}

	records := make([]documentRecord, len(docs))
	for i, doc := range docs {
		records[i] = documentRecord{
			DocID:       doc.DocID.String(),
			Filename:    doc.Filename,
			UploadDate:  doc.UploadedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			TotalChunks: doc.TotalChunks,
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": records, "count": len(records)})
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, http.StatusBadRequest, errors.New("invalid document id"))
		return
	}

	deleted, err := s.store.Delete(c.Request.Context(), docID)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		s.writeError(c, http.StatusNotFound, errors.New("document not found"))
		return
	}

	if conversationID := c.Query("conversation_id"); conversationID != "" {
		if conv, ok := s.sessions.Get(conversationID); ok {
			conv.DetachDocument(docID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Document deleted successfully"})
}

func (s *Server) handleEndSession(c *gin.Context) {
	var req endSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, err)
		return
	}

	s.sessions.Close(req.ConversationID)
	c.JSON(http.StatusOK, gin.H{"message": "session ended"})
}

// handleReset drops every session and every stored document. There is no
// partial variant; scoped cleanup goes through document deletion.
func (s *Server) handleReset(c *gin.Context) {
	if err := s.store.Reset(c.Request.Context()); err != nil {
		s.writeError(c, http.StatusInternalServerError, err)
		return
	}
	s.sessions.Reset()

	c.JSON(http.StatusOK, gin.H{"message": "all sessions and documents cleared"})
}

func (s *Server) writeError(c *gin.Context, status int, err error) {
	s.logger.Warn("api error", zap.Int("status", status), zap.Error(err))
	c.JSON(status, errorResponse{Error: err.Error()})
}
