package formcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"
)

const multipartMemLimit = 32 << 20

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
}

type transcoder interface {
	Transcode(ctx context.Context, src string) (string, error)
}

type analyzer interface {
	Analyze(ctx context.Context, videoPath string) (string, error)
}

type Response struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Handler struct {
	transcoder     transcoder
	analyzer       analyzer
	tempDir        string
	maxUploadBytes int64
	slots          chan struct{}
	metricsManager *metrics.Manager
}

func NewHandler(
	transcoder transcoder,
	analyzer analyzer,
	tempDir string,
	maxUploadMB int,
	maxConcurrent int,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		transcoder:     transcoder,
		analyzer:       analyzer,
		tempDir:        tempDir,
		maxUploadBytes: int64(maxUploadMB) << 20,
		slots:          make(chan struct{}, maxConcurrent),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleFormCheck(w http.ResponseWriter, r *http.Request) {
	reqCtx, span := tracing.GlobalTracer.Start(r.Context(), "handler.formcheck")
	defer span.End()

	// reject right away when all transcode slots are taken, instead of
	// piling ffmpeg processes on the box
	select {
	case handler.slots <- struct{}{}:
		defer func() { <-handler.slots }()
	default:
		handler.metricsManager.CounterFormChecks.WithLabelValues("rejected").Inc()
		writeFormCheckErr(w, http.StatusTooManyRequests,
			"form check busy, try again in a moment", "transcode capacity reached")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, handler.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		log.Tracef("form check, parse multipart form: %s", err)
		handler.metricsManager.CounterFormChecks.WithLabelValues("bad_request").Inc()
		writeFormCheckErr(w, http.StatusBadRequest,
			"invalid or too large upload", err.Error())
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		handler.metricsManager.CounterFormChecks.WithLabelValues("bad_request").Inc()
		writeFormCheckErr(w, http.StatusBadRequest,
			"video file missing", err.Error())
		return
	}
	defer file.Close()

	if !handler.videoTypeAllowed(file, header.Header.Get("Content-Type")) {
		handler.metricsManager.CounterFormChecks.WithLabelValues("bad_request").Inc()
		writeFormCheckErr(w, http.StatusBadRequest,
			"unsupported video type, use mp4 or mov", "")
		return
	}

	srcPath, err := handler.saveUpload(file, header.Filename)
	if err != nil {
		log.Errorf("form check, save upload: %s", err)
		handler.metricsManager.CounterFormChecks.WithLabelValues("internal_error").Inc()
		writeFormCheckErr(w, http.StatusInternalServerError,
			"failed to store upload", "")
		return
	}

	// the pipeline keeps running even if the client goes away,
	// temp files must get removed either way
	ctx := context.WithoutCancel(reqCtx)

	compressedPath := ""
	defer func() {
		removeIfPresent(srcPath)
		removeIfPresent(compressedPath)
	}()

	begin := time.Now()

	compressedPath, err = handler.transcoder.Transcode(ctx, srcPath)
	if err != nil {
		log.Errorf("form check, transcode %s: %s", srcPath, err)
		handler.metricsManager.CounterFormChecks.WithLabelValues("transcode_error").Inc()
		writeFormCheckErr(w, http.StatusInternalServerError,
			"video processing failed", err.Error())
		return
	}

	analysis, err := handler.analyzer.Analyze(ctx, compressedPath)
	if err != nil {
		if errors.Is(err, ErrNoAPIKey) {
			log.Error("form check: gemini api key not configured")
			handler.metricsManager.CounterFormChecks.WithLabelValues("config_error").Inc()
			writeFormCheckErr(w, http.StatusInternalServerError,
				"form analysis not configured on this deployment", err.Error())
			return
		}
		log.Errorf("form check, analyze %s: %s", compressedPath, err)
		handler.metricsManager.CounterFormChecks.WithLabelValues("analysis_error").Inc()
		writeFormCheckErr(w, http.StatusInternalServerError,
			"form analysis failed", err.Error())
		return
	}

	handler.metricsManager.CounterFormChecks.WithLabelValues("ok").Inc()
	handler.metricsManager.HistFormCheckDuration.Observe(time.Since(begin).Seconds())

	respJson, err := json.Marshal(Response{
		Success:  true,
		Analysis: analysis,
	})
	if err != nil {
		log.Errorf("form check, marshal response: %s", err)
		writeFormCheckErr(w, http.StatusInternalServerError,
			"failed to marshal response", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) videoTypeAllowed(file io.ReadSeeker, contentType string) bool {
	if allowedVideoTypes[contentType] {
		return true
	}

	// part header lied or is missing, sniff the content instead
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if allowedVideoTypes[http.DetectContentType(head[:n])] {
		return true
	}
	// DetectContentType knows the mp4 ftyp brands but not quicktime
	return isQuickTime(head[:n])
}

// isQuickTime reports whether the data starts with an ISO media box
// header carrying the quicktime "qt  " major brand
func isQuickTime(head []byte) bool {
	return len(head) >= 12 && string(head[4:8]) == "ftyp" && string(head[8:10]) == "qt"
}

func (handler *Handler) saveUpload(file io.Reader, originalName string) (string, error) {
	randomPart, err := pkg.GenerateRandomString(10)
	if err != nil {
		return "", fmt.Errorf("generate temp name: %w", err)
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".mp4"
	}
	srcPath := filepath.Join(handler.tempDir, fmt.Sprintf("formcheck_%s%s", randomPart, ext))

	dst, err := os.Create(srcPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		removeIfPresent(srcPath)
		return "", fmt.Errorf("store upload: %w", err)
	}

	return srcPath, nil
}

func removeIfPresent(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Errorf("failed to remove temp file %s: %s", path, err)
	}
}

func writeFormCheckErr(w http.ResponseWriter, statusCode int, message, errDetail string) {
	respJson, err := json.Marshal(Response{
		Success: false,
		Message: message,
		Error:   errDetail,
	})
	if err != nil {
		log.Errorf("failed to marshal form check error response: %s", err)
		http.Error(w, message, statusCode)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}
