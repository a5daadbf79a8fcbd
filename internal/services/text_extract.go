package services

import (
  "archive/zip"
  "bytes"
  "encoding/xml"
  "fmt"
  "io"
  "path/filepath"
  "regexp"
  "strings"
  "time"
  "unicode/utf8"

  pdf "github.com/ledongthuc/pdf"
)

// Extraction is total: every branch, including parser panics, timeouts,
// oversized input and unknown media types, ends in a string. Callers never
// see an error from this path.
const (
  maxExtractInputBytes = 10 << 20 // inputs past this are not parsed at all
  maxExtractChars      = 50000
  extractTimeout       = 15 * time.Second

  truncationMarker = "\n\n[... text truncated ...]"

  placeholderPDFFailed  = "PDF text extraction failed or timed out; no extractable text."
  placeholderDocFailed  = "Word document text extraction failed or timed out; no extractable text."
  placeholderNoText     = "No extractable text found in this file."
  placeholderOversize   = "File is too large for text extraction."
)

func placeholderUnsupported(mimeType string) string {
  if mimeType == "" {
    mimeType = "unknown"
  }
  return fmt.Sprintf("Unsupported file type for text extraction: %s", mimeType)
}

// ExtractText maps (bytes, declared media type) to plain text.
func ExtractText(fileName string, mimeType string, data []byte) string {
  if int64(len(data)) > maxExtractInputBytes {
    return placeholderOversize
  }
  if len(data) == 0 {
    return placeholderNoText
  }

  ext := strings.ToLower(filepath.Ext(fileName))
  mt := strings.ToLower(strings.TrimSpace(mimeType))
  if i := strings.Index(mt, ";"); i >= 0 {
    mt = strings.TrimSpace(mt[:i])
  }

  var text string
  switch {
  case mt == "application/pdf" || ext == ".pdf":
    text = extractWithTimeout(func() (string, error) { return extractPDF(data) }, placeholderPDFFailed)

  case mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" ||
    mt == "application/msword" || ext == ".docx" || ext == ".doc":
    text = extractWithTimeout(func() (string, error) { return extractDOCX(data) }, placeholderDocFailed)

  case strings.HasPrefix(mt, "text/") ||
    mt == "application/json" || mt == "application/xml" ||
    mt == "application/javascript" || mt == "application/x-sh" ||
    ext == ".txt" || ext == ".md" || ext == ".markdown" || ext == ".json":
    text = decodePlainText(data)

  default:
    return placeholderUnsupported(mimeType)
  }

  if strings.TrimSpace(text) == "" {
    return placeholderNoText
  }
  return normalizeExtracted(text)
}

// ExtractedTextUsable reports whether the extraction produced real document
// content rather than one of the placeholder strings. Placeholder-only notes
// are kept but not enriched.
func ExtractedTextUsable(text string) bool {
  t := strings.TrimSpace(text)
  switch t {
  case "", placeholderPDFFailed, placeholderDocFailed, placeholderNoText, placeholderOversize:
    return false
  }
  if strings.HasPrefix(t, "Unsupported file type for text extraction:") {
    return false
  }
  return true
}

// extractWithTimeout runs fn on its own goroutine and abandons it past the
// extraction ceiling. The goroutine is left to finish on its own; its result
// is discarded.
func extractWithTimeout(fn func() (string, error), placeholder string) string {
  type result struct {
    text string
    err  error
  }
  ch := make(chan result, 1)

  go func() {
    defer func() {
      if r := recover(); r != nil {
        ch <- result{err: fmt.Errorf("extractor panic: %v", r)}
      }
    }()
    text, err := fn()
    ch <- result{text: text, err: err}
  }()

  timer := time.NewTimer(extractTimeout)
  defer timer.Stop()

  select {
  case res := <-ch:
    if res.err != nil {
      return placeholder
    }
    return res.text
  case <-timer.C:
    return placeholder
  }
}

func extractPDF(data []byte) (string, error) {
  r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
  if err != nil {
    return "", fmt.Errorf("pdf reader: %w", err)
  }
  plain, err := r.GetPlainText()
  if err != nil {
    return "", fmt.Errorf("pdf plaintext: %w", err)
  }
  b, err := io.ReadAll(plain)
  if err != nil {
    return "", fmt.Errorf("pdf read: %w", err)
  }
  return string(b), nil
}

func extractDOCX(data []byte) (string, error) {
  zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
  if err != nil {
    return "", fmt.Errorf("docx zip: %w", err)
  }
  var doc *zip.File
  for _, f := range zr.File {
    if f.Name == "word/document.xml" {
      doc = f
      break
    }
  }
  if doc == nil {
    return "", fmt.Errorf("docx: missing word/document.xml")
  }
  rc, err := doc.Open()
  if err != nil {
    return "", err
  }
  raw, readErr := io.ReadAll(rc)
  _ = rc.Close()
  if readErr != nil {
    return "", readErr
  }
  return extractTextFromXML(raw, "t"), nil
}

// extractTextFromXML gathers the character data of every element with the
// given local name (<w:t> runs for DOCX).
func extractTextFromXML(xmlBytes []byte, local string) string {
  dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
  var out strings.Builder
  for {
    tok, err := dec.Token()
    if err != nil {
      break
    }
    se, ok := tok.(xml.StartElement)
    if !ok {
      continue
    }
    if se.Name.Local != local {
      continue
    }
    var v string
    _ = dec.DecodeElement(&v, &se)
    if v != "" {
      out.WriteString(v)
      out.WriteString(" ")
    }
  }
  return out.String()
}

func decodePlainText(data []byte) string {
  if utf8.Valid(data) {
    return string(data)
  }
  // Replace invalid sequences rather than failing.
  return strings.ToValidUTF8(string(data), "�")
}

var blankRunRe = regexp.MustCompile(`\n{4,}`)

// normalizeExtracted applies the uniform post-processing: one line-break
// form, runs of 3+ blank lines collapsed to a single blank line, trimmed,
// capped at maxExtractChars with a visible marker.
func normalizeExtracted(s string) string {
  s = strings.ReplaceAll(s, "\r\n", "\n")
  s = strings.ReplaceAll(s, "\r", "\n")
  s = blankRunRe.ReplaceAllString(s, "\n\n")
  s = strings.TrimSpace(s)
  if len(s) > maxExtractChars {
    cut := s[:maxExtractChars]
    // don't cut a rune in half
    for len(cut) > 0 && !utf8.ValidString(cut) {
      cut = cut[:len(cut)-1]
    }
    s = cut + truncationMarker
  }
  return s
}
