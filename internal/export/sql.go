package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"pescan/internal/store/models"
)

// WriteSQL emits a replayable script: schema creation plus one INSERT
// per record inside a transaction. Replaying it against an empty SQLite
// database reconstructs all 18 columns of every record.
func WriteSQL(w io.Writer, records []models.Record) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "BEGIN TRANSACTION;")
	fmt.Fprintln(bw, "")
	fmt.Fprintln(bw, "CREATE TABLE `file_info` (")
	fmt.Fprintln(bw, "\t`id_analysis`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`root_folder`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`file_path`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`file_name`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`file_extension`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`architecture`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`file_hash`\tTEXT NOT NULL,")
	fmt.Fprintln(bw, "\t`ASLR`\tINTEGER,")
	fmt.Fprintln(bw, "\t`DEP`\tINTEGER,")
	fmt.Fprintln(bw, "\t`SEH`\tINTEGER,")
	fmt.Fprintln(bw, "\t`CFG`\tINTEGER,")
	fmt.Fprintln(bw, "\t`HIGH_ENTROPY`\tINTEGER,")
	fmt.Fprintln(bw, "\t`FORCE_INTEGRITY`\tINTEGER,")
	fmt.Fprintln(bw, "\t`NO_ISOLATION`\tINTEGER,")
	fmt.Fprintln(bw, "\t`NO_BIND`\tINTEGER,")
	fmt.Fprintln(bw, "\t`APPCONTAINER`\tINTEGER,")
	fmt.Fprintln(bw, "\t`WDM_DRIVER`\tINTEGER,")
	fmt.Fprintln(bw, "\t`TERMINAL_SERVER_AWARE`\tINTEGER")
	fmt.Fprintln(bw, ");")

	for _, r := range records {
		values := []string{
			quoteSQL(r.AnalysisTag), quoteSQL(r.RootPath), quoteSQL(r.FilePath),
			quoteSQL(r.FileName), quoteSQL(r.Extension),
			quoteSQL(string(r.Architecture)), quoteSQL(r.Digest),
		}
		for _, v := range r.FlagValues() {
			values = append(values, boolColumn(v))
		}
		fmt.Fprintf(bw, "INSERT INTO `file_info`(%s) VALUES (%s);\n",
			"`"+strings.Join(models.Columns, "`,`")+"`",
			strings.Join(values, ","))
	}

	fmt.Fprintln(bw, "")
	fmt.Fprintln(bw, "COMMIT;")
	return bw.Flush()
}

// quoteSQL single-quotes a text value, doubling embedded quotes.
func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
