package tap

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"slices"
	"strings"
)

// buildJobRequestBody assembles the multipart form for an asynchronous job:
// the usual doQuery parameters plus an UPLOAD declaration pointing at an
// inline VOTable file part holding the identifier column.
func buildJobRequestBody(adql string, upload *Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"REQUEST": "doQuery",
		"LANG":    "ADQL",
		"FORMAT":  "json",
		"PHASE":   "RUN",
		"QUERY":   adql,
		"UPLOAD":  fmt.Sprintf("%s,param:%s", upload.TableName, upload.TableName),
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile(upload.TableName, upload.TableName+".vot")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(part, upload.voTable()); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// voTable renders the upload as a minimal VOTable document with a single
// long-typed column. Identifiers are emitted in ascending order so the
// payload is deterministic for a given set.
func (u *Upload) voTable() string {
	ids := slices.Clone(u.IDs)
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<VOTABLE version="1.3" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">` + "\n")
	b.WriteString("<RESOURCE>\n<TABLE>\n")
	fmt.Fprintf(&b, "<FIELD name=%q datatype=\"long\"/>\n", u.Column)
	b.WriteString("<DATA>\n<TABLEDATA>\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "<TR><TD>%d</TD></TR>\n", id)
	}
	b.WriteString("</TABLEDATA>\n</DATA>\n</TABLE>\n</RESOURCE>\n</VOTABLE>\n")
	return b.String()
}
