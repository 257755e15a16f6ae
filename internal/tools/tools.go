package tools

// Tool describes one wrapped binary. Scoop never installs tools; InstallCmd
// is printed as a hint by `scoop check`.
type Tool struct {
	Name       string
	Binary     string
	InstallCmd string
	Homepage   string
	MinVersion string // empty means any version
	Required   bool
}

type ToolStatus struct {
	Name, Binary, Version string
	Installed             bool
	Outdated              bool
}

// Catalog lists every binary the invoker can call.
func Catalog() []Tool {
	return []Tool{
		// Vulnerability scanning (url and host scans share the binary)
		{"nuclei", "nuclei", "go install github.com/projectdiscovery/nuclei/v3/cmd/nuclei@latest", "https://github.com/projectdiscovery/nuclei", "3.0.0", true},

		// HTTP probing; installed as httpx-pd to avoid clashing with the python httpx CLI
		{"httpx", "httpx-pd", "go install github.com/projectdiscovery/httpx/cmd/httpx@latest && mv $(go env GOPATH)/bin/httpx $(go env GOPATH)/bin/httpx-pd", "https://github.com/projectdiscovery/httpx", "1.3.0", true},

		// Crawling and historic URLs
		{"katana", "katana", "go install github.com/projectdiscovery/katana/cmd/katana@latest", "https://github.com/projectdiscovery/katana", "", true},
		{"waybackurls", "waybackurls", "go install github.com/tomnomnom/waybackurls@latest", "https://github.com/tomnomnom/waybackurls", "", true},

		// Directory bruteforce
		{"dirsearch", "dirsearch", "pipx install dirsearch", "https://github.com/maurosoria/dirsearch", "", true},

		// Subdomain enumeration
		{"subfinder", "subfinder", "go install github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest", "https://github.com/projectdiscovery/subfinder", "2.5.0", true},

		// Port scanning (declared, no invocation yet)
		{"naabu", "naabu", "go install github.com/projectdiscovery/naabu/v2/cmd/naabu@latest", "https://github.com/projectdiscovery/naabu", "", false},
	}
}

// Lookup finds a catalog entry by name or binary.
func Lookup(name string) (Tool, bool) {
	for _, t := range Catalog() {
		if t.Name == name || t.Binary == name {
			return t, true
		}
	}
	return Tool{}, false
}
