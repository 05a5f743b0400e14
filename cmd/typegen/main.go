// Command typegen parses Go struct definitions and generates TypeScript
// interfaces consumed by the web frontend. Run from the project root:
//
//	go run ./cmd/typegen -out web/src/types/generated.ts
//
// The generated file keeps the frontend's settings and API types in sync
// with the Go structs that actually decode them.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
)

type structInfo struct {
	name   string
	fields []fieldInfo
}

type fieldInfo struct {
	jsonName string
	tsType   string
	optional bool
}

// typeMapping maps Go type strings to TypeScript type strings.
var typeMapping = map[string]string{
	"string":            "string",
	"int":               "number",
	"int64":             "number",
	"float32":           "number",
	"float64":           "number",
	"bool":              "boolean",
	"any":               "unknown",
	"interface{}":       "unknown",
	"map[string]string": "Record<string, string>",
	"map[string]any":    "Record<string, unknown>",
}

// typeAliases maps named Go types (e.g. Tone) to their underlying primitive.
// Populated at parse time.
var typeAliases = map[string]string{}

// constValues maps a named Go type to its declared const string values, so
// enums like Tone come out as TS union literals. Populated at parse time.
var constValues = map[string][]string{}

// structsToGenerate lists the Go structs to emit, in output order.
var structsToGenerate = []string{
	// Settings file
	"SettingsConfig",
	"SessionSettings",
	"LLMFactoryConfig",
	"TTSFactoryConfig",
	"STTFactoryConfig",
	// Provider configs
	"Config",
	"ElevenLabsTTSConfig",
	"NeuphonicTTSConfig",
	"KokoroTTSConfig",
	"WhisperConfig",
}

// tsRenames maps Go struct names to the TypeScript interface names the
// frontend uses.
var tsRenames = map[string]string{
	"SettingsConfig":      "Settings",
	"SessionSettings":     "SessionSettings",
	"LLMFactoryConfig":    "LlmServiceConfig",
	"TTSFactoryConfig":    "TtsServiceConfig",
	"STTFactoryConfig":    "SttServiceConfig",
	"Config":              "DeepSeekLlmConfig",
	"ElevenLabsTTSConfig": "ElevenLabsTtsConfig",
	"NeuphonicTTSConfig":  "NeuphonicTtsConfig",
	"KokoroTTSConfig":     "KokoroTtsConfig",
	"WhisperConfig":       "WhisperSttConfig",
}

// goTypeToTSRef resolves struct references inside field types.
var goTypeToTSRef = map[string]string{}

func init() {
	for _, name := range structsToGenerate {
		tsName := name
		if rename, ok := tsRenames[name]; ok {
			tsName = rename
		}
		goTypeToTSRef[name] = tsName
	}
}

func main() {
	outPath := flag.String("out", "web/src/types/generated.ts", "output TypeScript file path")
	flag.Parse()

	root, err := os.Getwd()
	if err != nil {
		fatal("getwd: %v", err)
	}

	dirs, err := discoverGoDirs(root)
	if err != nil {
		fatal("discover dirs: %v", err)
	}

	allStructs := map[string]*structInfo{}
	for _, dir := range dirs {
		structs, err := parseDir(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", dir, err)
			continue
		}
		for name, si := range structs {
			// First definition wins; provider packages each define one
			// config struct so plain names do not collide in practice.
			if _, exists := allStructs[name]; !exists {
				allStructs[name] = si
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("// Code generated by cmd/typegen; DO NOT EDIT.\n")
	buf.WriteString("//\n")
	buf.WriteString("// Regenerate: go run ./cmd/typegen -out web/src/types/generated.ts\n\n")

	for _, goName := range structsToGenerate {
		si, ok := allStructs[goName]
		if !ok {
			fmt.Fprintf(os.Stderr, "warning: struct %q not found, skipping\n", goName)
			continue
		}
		tsName := goName
		if rename, ok := tsRenames[goName]; ok {
			tsName = rename
		}
		writeInterface(&buf, tsName, si, goName)
	}

	writeAPITypes(&buf)

	absOut := *outPath
	if !filepath.IsAbs(absOut) {
		absOut = filepath.Join(root, absOut)
	}
	if err := os.MkdirAll(filepath.Dir(absOut), 0o755); err != nil {
		fatal("mkdir: %v", err)
	}
	if err := os.WriteFile(absOut, buf.Bytes(), 0o644); err != nil {
		fatal("write: %v", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", absOut, buf.Len())
}

// discoverGoDirs walks the project tree and returns every directory holding
// .go files, skipping vendor trees and the typegen cmd itself.
func discoverGoDirs(root string) ([]string, error) {
	skipDirs := map[string]bool{
		"vendor":       true,
		"node_modules": true,
		".git":         true,
		".next":        true,
		"typegen":      true,
	}

	seen := map[string]bool{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] || strings.HasPrefix(info.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(info.Name(), ".go") && !strings.HasSuffix(info.Name(), "_test.go") {
			seen[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// parseDir parses all .go files in a directory and extracts struct
// definitions, type aliases, and string const groups.
func parseDir(dir string) (map[string]*structInfo, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	result := map[string]*structInfo{}
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, decl := range file.Decls {
				genDecl, ok := decl.(*ast.GenDecl)
				if !ok {
					continue
				}

				switch genDecl.Tok {
				case token.TYPE:
					for _, spec := range genDecl.Specs {
						ts, ok := spec.(*ast.TypeSpec)
						if !ok {
							continue
						}
						if ident, ok := ts.Type.(*ast.Ident); ok {
							typeAliases[ts.Name.Name] = ident.Name
							continue
						}
						if st, ok := ts.Type.(*ast.StructType); ok {
							result[ts.Name.Name] = parseStruct(ts.Name.Name, st)
						}
					}

				case token.CONST:
					for _, spec := range genDecl.Specs {
						vs, ok := spec.(*ast.ValueSpec)
						if !ok || vs.Type == nil || len(vs.Values) == 0 {
							continue
						}
						typeName := typeExprToString(vs.Type)
						for _, val := range vs.Values {
							lit, ok := val.(*ast.BasicLit)
							if !ok || lit.Kind != token.STRING {
								continue
							}
							constValues[typeName] = append(constValues[typeName], strings.Trim(lit.Value, "\""))
						}
					}
				}
			}
		}
	}
	return result, nil
}

func parseStruct(name string, st *ast.StructType) *structInfo {
	si := &structInfo{name: name}
	for _, field := range st.Fields.List {
		if field.Tag == nil {
			continue
		}
		tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
		parts := strings.Split(tag.Get("json"), ",")
		jsonName := parts[0]
		if jsonName == "" || jsonName == "-" {
			continue
		}
		// API keys never reach the frontend.
		if jsonName == "api_key" {
			continue
		}

		omitempty := false
		for _, p := range parts[1:] {
			if p == "omitempty" {
				omitempty = true
			}
		}

		goType := typeExprToString(field.Type)
		_, isPointer := field.Type.(*ast.StarExpr)
		si.fields = append(si.fields, fieldInfo{
			jsonName: jsonName,
			tsType:   resolveType(goType),
			optional: omitempty || isPointer,
		})
	}
	return si
}

func typeExprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeExprToString(t.X)
	case *ast.ArrayType:
		return "[]" + typeExprToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeExprToString(t.Key) + "]" + typeExprToString(t.Value)
	case *ast.SelectorExpr:
		return typeExprToString(t.X) + "." + t.Sel.Name
	case *ast.InterfaceType:
		return "interface{}"
	default:
		return "unknown"
	}
}

// resolveType converts a Go type string to a TypeScript type string.
func resolveType(goType string) string {
	clean := strings.TrimPrefix(goType, "*")

	if ts, ok := typeMapping[clean]; ok {
		return ts
	}
	if strings.HasPrefix(clean, "[]") {
		return resolveType(clean[2:]) + "[]"
	}
	if strings.HasPrefix(clean, "map[") {
		return "Record<string, unknown>"
	}
	if tsRef, ok := goTypeToTSRef[clean]; ok {
		return tsRef
	}
	if idx := strings.LastIndex(clean, "."); idx >= 0 {
		clean = clean[idx+1:]
		if tsRef, ok := goTypeToTSRef[clean]; ok {
			return tsRef
		}
	}
	if vals, ok := constValues[clean]; ok && len(vals) > 0 {
		return buildUnionLiteral(vals)
	}
	if underlying, ok := typeAliases[clean]; ok {
		return resolveType(underlying)
	}
	return "unknown"
}

// buildUnionLiteral returns a TS inline union from string const values,
// e.g. ["serious", "casual"] -> "'serious' | 'casual'".
func buildUnionLiteral(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}

// writeInterface emits one TypeScript interface. Fields default to optional:
// the Go side fills defaults, so the settings file only carries overrides.
func writeInterface(buf *bytes.Buffer, tsName string, si *structInfo, goName string) {
	fmt.Fprintf(buf, "/** Generated from Go struct: %s */\n", goName)
	fmt.Fprintf(buf, "export interface %s {\n", tsName)
	for _, f := range si.fields {
		fmt.Fprintf(buf, "  %s?: %s\n", f.jsonName, f.tsType)
	}
	fmt.Fprintf(buf, "}\n\n")
}

// writeAPITypes emits the API wire types that do not map one-to-one onto Go
// structs: the chat history tuple and the response envelopes.
func writeAPITypes(buf *bytes.Buffer) {
	buf.WriteString("// --- API wire types ---\n\n")
	buf.WriteString(`export type ChatMessage = ['system' | 'human' | 'ai', string]

export type Tone = 'serious' | 'casual' | 'funny' | 'crazy'

export interface ProfilerInitResponse {
  success: boolean
  sessionId: string
}

export interface ProfilerChatResponse {
  success: boolean
  response: string
  history: ChatMessage[]
  tokenCount: number
}

export interface ProfilerErrorResponse {
  success: false
  error: string
}

export interface SttResponse {
  ok: boolean
  text?: string
  language?: string
  error?: string
}
`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "typegen: "+format+"\n", args...)
	os.Exit(1)
}
