// Package tmx writes aligned segment pairs as TMX 1.4 documents.
package tmx

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// Unit is one translation unit.
type Unit struct {
	Source string
	Target string
}

// Header describes the document.
type Header struct {
	SourceLang string
	TargetLang string

	// Tool is written as creationtool; defaults to "bitext".
	Tool        string
	ToolVersion string

	// Created defaults to the current time.
	Created time.Time
}

type document struct {
	XMLName xml.Name  `xml:"tmx"`
	Version string    `xml:"version,attr"`
	Header  xmlHeader `xml:"header"`
	Body    xmlBody   `xml:"body"`
}

type xmlHeader struct {
	CreationTool        string `xml:"creationtool,attr"`
	CreationToolVersion string `xml:"creationtoolversion,attr"`
	SegType             string `xml:"segtype,attr"`
	OTMF                string `xml:"o-tmf,attr"`
	AdminLang           string `xml:"adminlang,attr"`
	SrcLang             string `xml:"srclang,attr"`
	DataType            string `xml:"datatype,attr"`
	CreationDate        string `xml:"creationdate,attr"`
}

type xmlBody struct {
	Units []xmlUnit `xml:"tu"`
}

type xmlUnit struct {
	Variants []xmlVariant `xml:"tuv"`
}

type xmlVariant struct {
	Lang string `xml:"xml:lang,attr"`
	Seg  string `xml:"seg"`
}

// Encode writes units to w as an indented TMX 1.4 document.
func Encode(w io.Writer, h Header, units []Unit) error {
	if h.SourceLang == "" || h.TargetLang == "" {
		return fmt.Errorf("tmx: source and target language are required")
	}
	if h.Tool == "" {
		h.Tool = "bitext"
	}
	if h.ToolVersion == "" {
		h.ToolVersion = "dev"
	}
	if h.Created.IsZero() {
		h.Created = time.Now()
	}

	doc := document{
		Version: "1.4",
		Header: xmlHeader{
			CreationTool:        h.Tool,
			CreationToolVersion: h.ToolVersion,
			SegType:             "sentence",
			OTMF:                "bitext",
			AdminLang:           "en",
			SrcLang:             h.SourceLang,
			DataType:            "plaintext",
			CreationDate:        h.Created.UTC().Format("20060102T150405Z"),
		},
		Body: xmlBody{Units: make([]xmlUnit, 0, len(units))},
	}
	for _, u := range units {
		doc.Body.Units = append(doc.Body.Units, xmlUnit{Variants: []xmlVariant{
			{Lang: h.SourceLang, Seg: u.Source},
			{Lang: h.TargetLang, Seg: u.Target},
		}})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("tmx: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
