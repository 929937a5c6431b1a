package main

import (
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"scan", "clean", "annotate"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("Find(%q): %v", name, err)
		}

		if cmd.Name() != name {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}
}

func TestScanFlags(t *testing.T) {
	root := newRootCmd()

	scan, _, err := root.Find([]string{"scan"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	for _, flag := range []string{"urls", "annotate"} {
		if scan.Flags().Lookup(flag) == nil {
			t.Errorf("scan is missing --%s", flag)
		}
	}

	if root.PersistentFlags().Lookup("engine") == nil {
		t.Error("root is missing --engine")
	}
}
