package server_test

import (
	"bytes"
	"fmt"
	"strings"
)

// buildPDF assembles a minimal single-page PDF with a correct xref table.
// The encrypted variant carries a standard-security-handler dictionary with
// garbage O/U entries, so the empty user password never verifies.
func buildPDF(encrypted bool) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	var offsets []int
	add := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}
	add("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	add("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	add("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")

	size := 4
	trailerExtra := ""
	if encrypted {
		o := strings.Repeat("12", 32)
		u := strings.Repeat("34", 32)
		add("4 0 obj\n<< /Filter /Standard /V 1 /R 2 /O <" + o + "> /U <" + u + "> /P -44 >>\nendobj\n")
		size = 5
		id := "0123456789abcdef0123456789abcdef"
		trailerExtra = " /Encrypt 4 0 R /ID [<" + id + "> <" + id + ">]"
	}

	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", size, trailerExtra, xrefOff)
	return buf.Bytes()
}
