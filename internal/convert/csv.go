package convert

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/useradmin/internal/model"
)

// CSVTimeLayout formats timestamps in audit exports.
const CSVTimeLayout = "2006-01-02 15:04:05"

// NotAvailable fills logout columns of open entries.
const NotAvailable = "N/A"

// AuditCSVHeader is the first line of an audit export.
var AuditCSVHeader = []string{
	"Log ID", "User ID", "Username", "Full Name", "IP Address", "Login Time",
	"Logout Time", "Session Duration (minutes)", "User Agent", "Status",
}

// AuditCSVRecord renders one entry as CSV fields.
func AuditCSVRecord(r model.AuditRow) []string {
	logout, minutes := NotAvailable, NotAvailable
	if r.LogoutTime != nil {
		logout = r.LogoutTime.Format(CSVTimeLayout)
	}
	if r.DurationMinutes != nil {
		minutes = strconv.Itoa(*r.DurationMinutes)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		strconv.FormatInt(r.UserID, 10),
		r.Username,
		r.FullName,
		r.IPAddress,
		r.LoginTime.Format(CSVTimeLayout),
		logout,
		minutes,
		r.UserAgent,
		Status(r.AuditEntry),
	}
}

// WriteAuditCSV writes a header plus one line per row, quoting every field including the header.
func WriteAuditCSV(w io.Writer, rows []model.AuditRow) error {
	bw := bufio.NewWriter(w)
	writeQuoted(bw, AuditCSVHeader)
	for _, r := range rows {
		writeQuoted(bw, AuditCSVRecord(r))
	}
	return bw.Flush()
}

func writeQuoted(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		_ = w.WriteByte('"')
		_, _ = w.WriteString(strings.ReplaceAll(sanitizeLine(f), `"`, `""`))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('\n')
}

// sanitizeLine keeps one record per line even for user agents with embedded newlines.
func sanitizeLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// AuditExportFileName names an export taken at t.
func AuditExportFileName(t time.Time) string {
	return "user_logs_" + t.Format("20060102_150405") + ".csv"
}
