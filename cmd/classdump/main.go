// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	classfile "github.com/gojvm/classfile"
)

var (
	verbose     bool
	skipCode    bool
	skipDebug   bool
	jsonOutput  bool
	showMethods bool
	showFields  bool
)

// version is set by the release pipeline.
var version = "dev"

func prettyPrint(buff []byte) string {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, buff, "", "\t"); err != nil {
		log.Println("JSON indent error: ", err)
		return string(buff)
	}
	return prettyJSON.String()
}

func isDirectory(path string) bool {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fileInfo.IsDir()
}

// classSummary is the JSON shape `classdump dump` prints, collected by
// summaryVisitor from the event stream.
type classSummary struct {
	File       string          `json:"file"`
	Major      int             `json:"major_version"`
	Minor      int             `json:"minor_version"`
	Access     string          `json:"access_flags"`
	Name       string          `json:"name"`
	SuperName  string          `json:"super_name,omitempty"`
	Interfaces []string        `json:"interfaces,omitempty"`
	Source     string          `json:"source_file,omitempty"`
	NestHost   string          `json:"nest_host,omitempty"`
	Fields     []fieldSummary  `json:"fields,omitempty"`
	Methods    []methodSummary `json:"methods,omitempty"`
}

type fieldSummary struct {
	Access     string      `json:"access_flags"`
	Name       string      `json:"name"`
	Descriptor string      `json:"descriptor"`
	Signature  string      `json:"signature,omitempty"`
	Constant   interface{} `json:"constant_value,omitempty"`
}

type methodSummary struct {
	Access       string   `json:"access_flags"`
	Name         string   `json:"name"`
	Descriptor   string   `json:"descriptor"`
	Signature    string   `json:"signature,omitempty"`
	Exceptions   []string `json:"exceptions,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
}

// summaryVisitor collects a classSummary from the visitor events; the
// method sub-visitor disassembles each body into mnemonic lines.
type summaryVisitor struct {
	classfile.ClassVisitorBase
	summary *classSummary
}

func (v *summaryVisitor) Visit(ver, access int, name, signature, superName string, interfaces []string) {
	v.summary.Major = ver & 0xFFFF
	v.summary.Minor = ver >> 16
	v.summary.Access = fmt.Sprintf("%#x", access&0xFFFF)
	v.summary.Name = name
	v.summary.SuperName = superName
	v.summary.Interfaces = interfaces
}

func (v *summaryVisitor) VisitSource(source, debug string) {
	v.summary.Source = source
}

func (v *summaryVisitor) VisitNestHost(nestHost string) {
	v.summary.NestHost = nestHost
}

func (v *summaryVisitor) VisitField(access int, name, descriptor, signature string, value interface{}) classfile.FieldVisitor {
	v.summary.Fields = append(v.summary.Fields, fieldSummary{
		Access:     fmt.Sprintf("%#x", access&0xFFFF),
		Name:       name,
		Descriptor: descriptor,
		Signature:  signature,
		Constant:   value,
	})
	return nil
}

func (v *summaryVisitor) VisitMethod(access int, name, descriptor, signature string, exceptions []string) classfile.MethodVisitor {
	v.summary.Methods = append(v.summary.Methods, methodSummary{
		Access:     fmt.Sprintf("%#x", access&0xFFFF),
		Name:       name,
		Descriptor: descriptor,
		Signature:  signature,
		Exceptions: exceptions,
	})
	if skipCode {
		return nil
	}
	// The slice may grow while later methods are visited, so the
	// disassembler addresses its row by index rather than by pointer.
	return &disassembler{summary: v.summary, index: len(v.summary.Methods) - 1}
}

func parseClass(filename string, cmd *cobra.Command) {
	if verbose {
		log.Printf("processing %s", filename)
	}
	r, err := classfile.Open(filename, &classfile.Options{})
	if err != nil {
		log.Printf("error while opening file: %s, reason: %v", filename, err)
		return
	}
	defer r.Close()

	flags := 0
	if skipCode {
		flags |= classfile.SkipCode
	}
	if skipDebug {
		flags |= classfile.SkipDebug
	}
	summary := &classSummary{File: filepath.Base(filename)}
	if err := r.Accept(&summaryVisitor{summary: summary}, flags); err != nil {
		log.Printf("error while parsing file: %s, reason: %v", filename, err)
		return
	}
	if !showFields {
		summary.Fields = nil
	}
	if !showMethods {
		summary.Methods = nil
	}
	buff, err := json.Marshal(summary)
	if err != nil {
		log.Printf("error while encoding %s: %v", filename, err)
		return
	}
	if jsonOutput {
		fmt.Println(string(buff))
	} else {
		fmt.Println(prettyPrint(buff))
	}
}

var rootCmd = &cobra.Command{
	Use:   "classdump",
	Short: "classdump is a JVM class file dumper and browser",
	Long: `A tool built on the gojvm/classfile codec: it parses class files
through the visitor pipeline and prints or browses their structure.`,
}

var dumpCmd = &cobra.Command{
	Use:   "dump [path to class file or dir]",
	Short: "Dump class file structure as JSON",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, arg := range args {
			if isDirectory(arg) {
				entries, err := os.ReadDir(arg)
				if err != nil {
					log.Printf("error reading %s: %v", arg, err)
					continue
				}
				for _, entry := range entries {
					if filepath.Ext(entry.Name()) != ".class" {
						continue
					}
					parseClass(filepath.Join(arg, entry.Name()), cmd)
				}
			} else {
				parseClass(arg, cmd)
			}
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("classdump version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd, versionCmd, browseCmd)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	dumpCmd.Flags().BoolVar(&skipCode, "skip-code", false, "do not parse method bodies")
	dumpCmd.Flags().BoolVar(&skipDebug, "skip-debug", false, "skip debug attributes")
	dumpCmd.Flags().BoolVar(&jsonOutput, "json", false, "compact JSON output")
	dumpCmd.Flags().BoolVar(&showFields, "fields", true, "include fields")
	dumpCmd.Flags().BoolVar(&showMethods, "methods", true, "include methods and bytecode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
