package main

import (
	"flag"
	"testing"
)

func TestStringList_Repeatable(t *testing.T) {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	var docs stringList
	var questions stringList
	fs.Var(&docs, "doc", "")
	fs.Var(&questions, "q", "")

	err := fs.Parse([]string{"-doc", "a.pdf", "-q", "first?", "-doc", "b.html", "-q", "second?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0] != "a.pdf" || docs[1] != "b.html" {
		t.Errorf("docs: got %v", docs)
	}
	if len(questions) != 2 || questions[1] != "second?" {
		t.Errorf("questions: got %v", questions)
	}
}

func TestStringList_String(t *testing.T) {
	l := stringList{"a", "b"}
	if got := l.String(); got != "a,b" {
		t.Errorf("String: got %q", got)
	}
}
