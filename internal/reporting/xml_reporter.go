// internal/reporting/xml_reporter.go
package reporting

import (
	"io"
	"strconv"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// XMLReporter buffers reports and writes one <layout> document on Close.
type XMLReporter struct {
	writer  io.WriteCloser
	logger  *zap.Logger
	pretty  bool
	mu      sync.Mutex
	reports []*Report
}

func NewXMLReporter(w io.WriteCloser, opts Options) *XMLReporter {
	return &XMLReporter{
		writer: w,
		logger: loggerOr(opts.Logger, "xml_reporter"),
		pretty: opts.Pretty,
	}
}

func (r *XMLReporter) Write(rep *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *XMLReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug("Finalizing XML report", zap.Int("scenes", len(r.reports)))
	sortReports(r.reports)
	doc := BuildXML(r.reports)
	if r.pretty {
		doc.Indent(2)
	}
	_, err := doc.WriteTo(r.writer)
	return finish(r.logger, r.writer, err)
}

// BuildXML renders reports as a <layout> document.
func BuildXML(reports []*Report) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("layout")
	for _, rep := range reports {
		scene := root.CreateElement("scene")
		scene.CreateAttr("path", rep.Scene)
		scene.CreateAttr("tree", rep.TreeID)
		setSize(scene, rep.Viewport)
		if rep.Root != nil {
			appendNode(scene, rep.Root)
		}
	}
	return doc
}

func appendNode(parent *etree.Element, n *NodeReport) {
	el := parent.CreateElement("node")
	el.CreateAttr("handle", n.Handle)
	el.CreateAttr("kind", n.Kind)
	el.CreateAttr("type", n.Type)
	if n.Name != "" {
		el.CreateAttr("name", n.Name)
	}
	setSize(el.CreateElement("desired"), n.Desired)
	setSize(el.CreateElement("render"), n.Render)

	offset := el.CreateElement("offset")
	offset.CreateAttr("x", formatFloat(n.Offset.X))
	offset.CreateAttr("y", formatFloat(n.Offset.Y))

	if m := n.Transform; m != nil {
		tr := el.CreateElement("transform")
		for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
			tr.CreateAttr(name, formatFloat(m[i]))
		}
	}
	if c := n.Clip; c != nil {
		clip := el.CreateElement("clip")
		clip.CreateAttr("x", formatFloat(c.X))
		clip.CreateAttr("y", formatFloat(c.Y))
		clip.CreateAttr("width", formatFloat(c.Width))
		clip.CreateAttr("height", formatFloat(c.Height))
	}
	for _, c := range n.Children {
		appendNode(el, c)
	}
}

func setSize(el *etree.Element, s Size) {
	el.CreateAttr("width", formatFloat(s.Width))
	el.CreateAttr("height", formatFloat(s.Height))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
