package dossier

import (
	"os"
	"path/filepath"
	"strings"
)

// Packet points at the documents making up one application folder.
type Packet struct {
	JD          string
	Resume      string
	CoverLetter string
	Outcome     string
	Folder      string
}

var packetKeywords = []struct {
	assign func(p *Packet, path string)
	isSet  func(p *Packet) bool
	words  []string
}{
	{
		func(p *Packet, path string) { p.JD = path },
		func(p *Packet) bool { return p.JD != "" },
		[]string{"jd", "job", "description", "vacancy", "role"},
	},
	{
		func(p *Packet, path string) { p.Resume = path },
		func(p *Packet) bool { return p.Resume != "" },
		[]string{"resume", "cv", "curriculum"},
	},
	{
		func(p *Packet, path string) { p.CoverLetter = path },
		func(p *Packet) bool { return p.CoverLetter != "" },
		[]string{"cl", "cover", "letter"},
	},
	{
		func(p *Packet, path string) { p.Outcome = path },
		func(p *Packet) bool { return p.Outcome != "" },
		[]string{"outcome", "reject", "decision", "offer", "status", "result"},
	},
}

// IdentifyPacket scans a folder and classifies its files as job
// description, resume, cover letter or outcome note by filename keywords.
// The first match per slot wins; files matching nothing are ignored.
func IdentifyPacket(folder string) (Packet, error) {
	packet := Packet{Folder: folder}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return packet, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := strings.ToLower(entry.Name())
		path := filepath.Join(folder, entry.Name())

		for _, slot := range packetKeywords {
			if slot.isSet(&packet) {
				continue
			}
			if containsAny(name, slot.words) {
				slot.assign(&packet, path)
				break
			}
		}
	}

	return packet, nil
}

func containsAny(name string, words []string) bool {
	for _, word := range words {
		if strings.Contains(name, word) {
			return true
		}
	}
	return false
}
