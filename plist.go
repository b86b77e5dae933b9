package servicectl

import (
	"fmt"
	"strings"
)

// renderLaunchdPlist generates the launchd property list for the
// descriptor. KeepAlive.SuccessfulExit=false restarts the daemon after
// crashes but honors a clean exit; ThrottleInterval rate-limits crash
// loops. Environment keys are emitted sorted for byte-identical output.
func renderLaunchdPlist(d *ServiceDescriptor) ([]byte, error) {
	if d.Label == "" {
		return nil, fmt.Errorf("%w: empty launchd label", ErrDescriptorGeneration)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	b.WriteString(`<plist version="1.0">` + "\n")
	b.WriteString("<dict>\n")

	plistKey(&b, 1, "Label")
	plistString(&b, 1, d.Label)

	plistKey(&b, 1, "ProgramArguments")
	b.WriteString("\t<array>\n")
	for _, arg := range d.commandLine() {
		plistString(&b, 2, arg)
	}
	b.WriteString("\t</array>\n")

	if len(d.Environment) > 0 {
		plistKey(&b, 1, "EnvironmentVariables")
		b.WriteString("\t<dict>\n")
		for _, key := range d.envKeys() {
			plistKey(&b, 2, key)
			plistString(&b, 2, d.Environment[key])
		}
		b.WriteString("\t</dict>\n")
	}

	if d.WorkingDirectory != "" {
		plistKey(&b, 1, "WorkingDirectory")
		plistString(&b, 1, d.WorkingDirectory)
	}

	if d.User != "" {
		plistKey(&b, 1, "UserName")
		plistString(&b, 1, d.User)
	}
	if d.Group != "" {
		plistKey(&b, 1, "GroupName")
		plistString(&b, 1, d.Group)
	}

	plistKey(&b, 1, "RunAtLoad")
	b.WriteString("\t<true/>\n")

	plistKey(&b, 1, "KeepAlive")
	b.WriteString("\t<dict>\n")
	plistKey(&b, 2, "SuccessfulExit")
	b.WriteString("\t\t<false/>\n")
	b.WriteString("\t</dict>\n")

	if d.ThrottleSec > 0 {
		plistKey(&b, 1, "ThrottleInterval")
		fmt.Fprintf(&b, "\t<integer>%d</integer>\n", d.ThrottleSec)
	}

	if d.Limits.OpenFiles > 0 || d.Limits.Processes > 0 {
		plistKey(&b, 1, "SoftResourceLimits")
		b.WriteString("\t<dict>\n")
		if d.Limits.OpenFiles > 0 {
			plistKey(&b, 2, "NumberOfFiles")
			fmt.Fprintf(&b, "\t\t<integer>%d</integer>\n", d.Limits.OpenFiles)
		}
		if d.Limits.Processes > 0 {
			plistKey(&b, 2, "NumberOfProcesses")
			fmt.Fprintf(&b, "\t\t<integer>%d</integer>\n", d.Limits.Processes)
		}
		b.WriteString("\t</dict>\n")
	}

	if d.StdoutPath != "" {
		plistKey(&b, 1, "StandardOutPath")
		plistString(&b, 1, d.StdoutPath)
	}
	if d.StderrPath != "" {
		plistKey(&b, 1, "StandardErrorPath")
		plistString(&b, 1, d.StderrPath)
	}

	b.WriteString("</dict>\n")
	b.WriteString("</plist>\n")
	return []byte(b.String()), nil
}

func plistKey(b *strings.Builder, depth int, key string) {
	b.WriteString(strings.Repeat("\t", depth))
	fmt.Fprintf(b, "<key>%s</key>\n", xmlEscape(key))
}

func plistString(b *strings.Builder, depth int, value string) {
	b.WriteString(strings.Repeat("\t", depth))
	fmt.Fprintf(b, "<string>%s</string>\n", xmlEscape(value))
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}
