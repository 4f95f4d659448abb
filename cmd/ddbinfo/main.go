package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/text"
	"github.com/crystal-mush/godaad/pkg/validate"
)

func main() {
	dbPath := flag.String("db", "", "Path to the DDB file")
	showVocab := flag.Bool("vocab", false, "List the vocabulary")
	showObjects := flag.Bool("objects", false, "List objects with their names and attributes")
	showMsg := flag.String("msg", "", "Decode one text, e.g. loc:1, obj:0, usr:3, sys:6")
	doValidate := flag.Bool("validate", false, "Run integrity checks")
	jsonOut := flag.Bool("json", false, "With -validate, print the report as JSON")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: ddbinfo -db <file.ddb> [options]")
		fmt.Fprintln(os.Stderr, "  -vocab        List the vocabulary")
		fmt.Fprintln(os.Stderr, "  -objects      List objects")
		fmt.Fprintln(os.Stderr, "  -msg <l:n>    Decode one text (loc, obj, usr, sys)")
		fmt.Fprintln(os.Stderr, "  -validate     Run integrity checks")
		fmt.Fprintln(os.Stderr, "  -json         Print the validation report as JSON")
		os.Exit(1)
	}

	start := time.Now()
	db, err := ddb.Load(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	if *doValidate && *jsonOut {
		v := validate.New(db)
		v.Run()
		if err := validate.GenerateReport(v).WriteJSON(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
		if v.Errors() > 0 {
			os.Exit(2)
		}
		return
	}

	fmt.Printf("Loaded %s in %v\n\n", *dbPath, time.Since(start))
	printSummary(db)

	if *showMsg != "" {
		fmt.Println()
		if err := printMessage(db, *showMsg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	}
	if *showVocab {
		fmt.Println()
		printVocabulary(db)
	}
	if *showObjects {
		fmt.Println()
		if err := printObjects(db); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	}
	if *doValidate {
		fmt.Println()
		if n := printValidation(db); n > 0 {
			os.Exit(2)
		}
	}
}

func printSummary(db *ddb.Database) {
	h := db.Header
	fmt.Println("=== Header ===")
	fmt.Printf("  Version:         %d\n", h.Version)
	fmt.Printf("  Machine:         %s\n", h.Machine)
	fmt.Printf("  Language:        %s\n", h.Language)
	fmt.Printf("  File length:     %d (image %d bytes)\n", h.FileLength, db.Buffer().Len())
	fmt.Printf("  Objects:         %d\n", h.NumObjDsc)
	fmt.Printf("  Locations:       %d\n", h.NumLocDsc)
	fmt.Printf("  User messages:   %d\n", h.NumUsrMsg)
	fmt.Printf("  System messages: %d\n", h.NumSysMsg)
	fmt.Printf("  Processes:       %d\n", h.NumPrc)
	fmt.Printf("  Words:           %d\n", len(db.Vocabulary()))

	fmt.Println()
	fmt.Println("=== Offsets ===")
	names := []string{"tokens", "processes", "object texts", "location texts", "user messages",
		"system messages", "connections", "vocabulary", "object locations", "object names",
		"object attributes", "object extra attributes"}
	for i, p := range h.Offsets() {
		fmt.Printf("  %-24s 0x%04X\n", names[i]+":", *p)
	}
}

var listNames = map[string]ddb.List{
	"obj": ddb.ListObjects,
	"loc": ddb.ListLocations,
	"usr": ddb.ListUserMessages,
	"sys": ddb.ListSystemMessages,
}

func printMessage(db *ddb.Database, ref string) error {
	prefix, num, ok := strings.Cut(ref, ":")
	l, known := listNames[strings.ToLower(prefix)]
	if !ok || !known {
		return fmt.Errorf("bad message %q, want list:number", ref)
	}
	n, err := strconv.ParseUint(num, 10, 8)
	if err != nil {
		return fmt.Errorf("bad message number %q: %w", num, err)
	}
	s, err := text.NewDecoder(db, nil, nil).Decode(l, uint8(n), false)
	if err != nil {
		return err
	}
	fmt.Printf("=== %s %d ===\n", l, n)
	fmt.Println(s)
	return nil
}

func printVocabulary(db *ddb.Database) {
	vocab := db.Vocabulary()
	fmt.Printf("=== Vocabulary (%d) ===\n", len(vocab))
	for _, w := range vocab {
		fmt.Printf("  %-6s %3d  %s\n", w.Text(), w.ID, w.Type)
	}
}

func printObjects(db *ddb.Database) error {
	var t gamedb.Table
	var flags gamedb.Flags
	if err := t.DecodeAll(db, &flags); err != nil {
		return err
	}
	dec := text.NewDecoder(db, nil, nil)
	fmt.Printf("=== Objects (%d) ===\n", t.Len())
	for i, o := range t.Objects {
		name, err := dec.Decode(ddb.ListObjects, uint8(i), false)
		if err != nil {
			name = fmt.Sprintf("<%v>", err)
		}
		fmt.Printf("  #%-3d %-30s %v\n", i, name, o)
	}
	return nil
}

func printValidation(db *ddb.Database) int {
	v := validate.New(db)
	findings := v.Run()
	fmt.Println("=== Validation ===")
	if len(findings) == 0 {
		fmt.Println("  No problems found.")
		return 0
	}
	for _, f := range findings {
		where := ""
		if f.List != "" {
			where = fmt.Sprintf(" %s[%d]", f.List, f.Entry)
		}
		fmt.Printf("  %-8s %-7s%s: %s\n", f.ID, strings.ToUpper(f.Severity.String()), where, f.Description)
	}
	summary := v.Summary()
	fmt.Printf("\n  %d findings, %d errors\n", len(findings), v.Errors())
	for cat, n := range summary {
		fmt.Printf("  %-12s %d\n", cat.String()+":", n)
	}
	return v.Errors()
}
