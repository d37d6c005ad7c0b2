package RSClientGo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"golang.org/x/exp/slices"
)

const (
	ExportStatusQueued   ExportStatus = "QUEUED"
	ExportStatusRunning  ExportStatus = "RUNNING"
	ExportStatusComplete ExportStatus = "COMPLETE"
	ExportStatusError    ExportStatus = "ERROR"
)

const (
	ExportCSV  ExportFileType = "CSV"
	ExportXLSX ExportFileType = "XLSX"
	ExportJSON ExportFileType = "JSON"
)

var exportFileTypes = []ExportFileType{ExportCSV, ExportXLSX, ExportJSON}

// lower bound between export status checks when the configured delay is 0
var minExportPollInterval = time.Second

func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusComplete || s == ExportStatusError
}

// Exports
// submits an export job and returns its ID, which can be passed to GetExportStatusByID or ExportPollingByID
func (c RSClient) RequestExport(subject Subject, filters []Filter, options ExportOptions, fields []ExportFieldGroup) (uint64, error) {
	return c.requestExport(c.clientID, subject, filters, options, fields)
}

func (c RSClient) requestExport(clientID uint64, subject Subject, filters []Filter, options ExportOptions, fields []ExportFieldGroup) (uint64, error) {
	c.logger.Debugf("Request %v export of %v to %v", options.FileType, subject, options.FileName)

	if !slices.Contains(exportFileTypes, options.FileType) {
		return 0, fmt.Errorf("unsupported export file type '%v'", options.FileType)
	}
	if err := ValidateFilters(filters); err != nil {
		return 0, fmt.Errorf("invalid export filters for %v: %w", subject, err)
	}
	c.logUnknownOperators(filters)
	if fields == nil {
		fields = []ExportFieldGroup{}
	}

	request := ExportRequest{
		FilterRequest:    FilterRequest{Filters: normalizeFilters(filters)},
		FileType:         options.FileType,
		FileName:         filepath.Base(exportBaseName(options.FileName)),
		Comment:          options.Comment,
		RowCount:         options.RowCountCap,
		ExportableFields: fields,
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return 0, err
	}

	data, err := c.sendClientRequest(clientID, http.MethodPost, fmt.Sprintf("/%v/export", subject.Name), jsonBody, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to submit %v export: %w", subject, err)
	}

	var exportResponse struct {
		ID uint64 `json:"id"`
	}
	if err = json.Unmarshal(data, &exportResponse); err != nil {
		return 0, &MalformedResponseError{What: "export submit response", Err: err}
	}
	if exportResponse.ID == 0 {
		return 0, &MalformedResponseError{What: "export submit response has no job id"}
	}

	c.logger.Infof("Submitted %v export job %d", subject, exportResponse.ID)
	return exportResponse.ID, nil
}

func (c RSClient) GetExportStatusByID(jobID uint64) (ExportJob, error) {
	return c.getExportStatusByID(c.clientID, jobID)
}

func (c RSClient) getExportStatusByID(clientID, jobID uint64) (ExportJob, error) {
	var job ExportJob

	data, err := c.sendClientRequest(clientID, http.MethodGet, fmt.Sprintf("/export/%d/status", jobID), nil, nil)
	if err != nil {
		c.logger.Tracef("Failed to fetch export status for job %d: %s", jobID, err)
		return job, fmt.Errorf("failed to fetch export status for job %d: %w", jobID, err)
	}

	if err = json.Unmarshal(data, &job); err != nil {
		return job, &MalformedResponseError{What: fmt.Sprintf("export job %d status", jobID), Err: err}
	}
	if job.ID == 0 {
		job.ID = jobID
	}
	return job, nil
}

// convenience function, polls until the job is COMPLETE using the ClientVars delay and limit
func (c RSClient) ExportPollingByID(jobID uint64) (ExportJob, error) {
	return c.ExportPollingByIDWithTimeout(jobID, c.consts.ExportPollingDelaySeconds, c.consts.ExportPollingMaxSeconds)
}

// maxSeconds of 0 polls until the job reaches a terminal state, however long that takes
func (c RSClient) ExportPollingByIDWithTimeout(jobID uint64, delaySeconds, maxSeconds int) (ExportJob, error) {
	return c.exportPolling(c.clientID, jobID, delaySeconds, maxSeconds)
}

func (c RSClient) exportPolling(clientID, jobID uint64, delaySeconds, maxSeconds int) (ExportJob, error) {
	if delaySeconds < 0 || maxSeconds < 0 {
		return ExportJob{ID: jobID}, fmt.Errorf("export job %d polling delay (%d) and limit (%d) must not be negative", jobID, delaySeconds, maxSeconds)
	}

	delay := time.Duration(delaySeconds) * time.Second
	if delay < minExportPollInterval {
		delay = minExportPollInterval
	}
	limit := time.Duration(maxSeconds) * time.Second

	start := time.Now()
	for {
		job, err := c.getExportStatusByID(clientID, jobID)
		if err != nil {
			return job, err
		}

		switch job.Status {
		case ExportStatusComplete:
			return job, nil
		case ExportStatusError:
			return job, &ExportFailedError{JobID: jobID}
		}

		elapsed := time.Since(start)
		if limit != 0 && elapsed >= limit {
			return job, &ExportTimeoutError{JobID: jobID, LastStatus: job.Status, Seconds: int(elapsed.Seconds())}
		}

		wait := delay
		if limit != 0 && limit-elapsed < wait {
			wait = limit - elapsed
		}
		c.logger.Debugf("Export job %d is %v, polling again in %v", jobID, job.Status, wait)
		if err := c.sleep(wait); err != nil {
			return job, fmt.Errorf("polling export job %d cancelled: %w", jobID, err)
		}
	}
}

// downloads the archive of a COMPLETE job to path
func (c RSClient) DownloadExportByID(jobID uint64, path string) error {
	return c.downloadExportByID(c.clientID, jobID, path)
}

func (c RSClient) downloadExportByID(clientID, jobID uint64, path string) error {
	c.logger.Debugf("Download export job %d to %v", jobID, path)

	header := http.Header{"Accept": {"application/octet-stream"}}
	response, err := c.sendClientRequestRaw(clientID, http.MethodGet, fmt.Sprintf("/export/%d", jobID), nil, header)
	if err != nil {
		return fmt.Errorf("failed to download export job %d: %w", jobID, err)
	}
	defer response.Body.Close()

	file, err := os.Create(path)
	if err != nil {
		return &ExportIOError{Path: path, Err: err}
	}

	body := &downloadReader{reader: response.Body}
	if _, err = io.Copy(file, body); err != nil {
		file.Close()
		c.removePartialDownload(path)
		if body.err != nil {
			return fmt.Errorf("failed to download export job %d: %w", jobID, &MaxRetryError{Method: http.MethodGet, URL: response.Request.URL.String(), Attempts: 1, Err: body.err})
		}
		return &ExportIOError{Path: path, Err: err}
	}
	if err = file.Close(); err != nil {
		c.removePartialDownload(path)
		return &ExportIOError{Path: path, Err: err}
	}
	return nil
}

// records the error of a failed read so it can be told apart from a failed write
type downloadReader struct {
	reader io.Reader
	err    error
}

func (r *downloadReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

func (c RSClient) removePartialDownload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warnf("Failed to remove partial export archive %v: %s", path, err)
	}
}

// Runs an export end to end: submit, poll until COMPLETE, download {FileName}.zip and extract it into {FileName}/
// returns the directory holding the extracted files
// the archive is removed after extraction unless ClientVars.ExportKeepArchive is set
func (c RSClient) RunExport(subject Subject, filters []Filter, options ExportOptions) (string, error) {
	return c.runExport(c.clientID, subject, filters, options)
}

func (c RSClient) runExport(clientID uint64, subject Subject, filters []Filter, options ExportOptions) (string, error) {
	if options.FileName == "" {
		return "", fmt.Errorf("export of %v requires a file name", subject)
	}

	fields, err := c.resolveExportFields(clientID, subject, options.Template)
	if err != nil {
		rsExportsTotal.WithLabelValues(subject.Name, "template_error").Inc()
		return "", err
	}

	jobID, err := c.requestExport(clientID, subject, filters, options, fields)
	if err != nil {
		rsExportsTotal.WithLabelValues(subject.Name, "submit_error").Inc()
		return "", err
	}

	if _, err = c.exportPolling(clientID, jobID, c.consts.ExportPollingDelaySeconds, c.consts.ExportPollingMaxSeconds); err != nil {
		rsExportsTotal.WithLabelValues(subject.Name, "job_error").Inc()
		return "", err
	}

	base := exportBaseName(options.FileName)
	archive := base + ".zip"
	if err = c.downloadExportByID(clientID, jobID, archive); err != nil {
		rsExportsTotal.WithLabelValues(subject.Name, "download_error").Inc()
		return "", err
	}

	if err = ExtractExportArchive(archive, base); err != nil {
		rsExportsTotal.WithLabelValues(subject.Name, "extract_error").Inc()
		return "", err
	}

	if !c.consts.ExportKeepArchive {
		if err = os.Remove(archive); err != nil {
			c.logger.Warnf("Failed to remove export archive %v: %s", archive, err)
		}
	}

	rsExportsTotal.WithLabelValues(subject.Name, "complete").Inc()
	c.logger.Infof("Export job %d for %v extracted to %v", jobID, subject, base)
	return base, nil
}

// extracts every entry of the zip archive into dir, creating it if needed
// entries that would land outside of dir are rejected
func ExtractExportArchive(archive, dir string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return &ExportIOError{Path: archive, Err: err}
	}
	defer reader.Close()

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return &ExportIOError{Path: dir, Err: err}
	}

	for _, f := range reader.File {
		target := filepath.Join(dir, f.Name)
		rel, err := filepath.Rel(dir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return &ExportIOError{Path: f.Name, Err: fmt.Errorf("archive entry escapes %v", dir)}
		}

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return &ExportIOError{Path: target, Err: err}
			}
			continue
		}

		if err = extractFile(f, target); err != nil {
			return &ExportIOError{Path: target, Err: err}
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
