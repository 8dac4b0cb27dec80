package config

// Certification describes a supported CompTIA track.
type Certification struct {
	Key         string
	Name        string
	Description string
	Domains     []string
}

// Certifications is the static catalog of supported tracks.
// Keyed by the short track name used in commands ("/selectcert A+").
var Certifications = map[string]Certification{
	"A+": {
		Key:         "A+",
		Name:        "CompTIA A+ (Core 1 & Core 2)",
		Description: "Entry-level IT certification covering hardware, networking, mobile devices, and troubleshooting",
		Domains: []string{
			"Mobile Devices", "Networking", "Hardware", "Virtualization and Cloud Computing",
			"Hardware and Network Troubleshooting", "Operating Systems", "Security",
			"Software Troubleshooting", "Operational Procedures",
		},
	},
	"Security+": {
		Key:         "Security+",
		Name:        "CompTIA Security+",
		Description: "Foundation-level cybersecurity certification",
		Domains: []string{
			"Attacks, Threats, and Vulnerabilities", "Architecture and Design",
			"Implementation", "Operations and Incident Response",
			"Governance, Risk, and Compliance",
		},
	},
	"Network+": {
		Key:         "Network+",
		Name:        "CompTIA Network+",
		Description: "Networking fundamentals certification",
		Domains: []string{
			"Networking Fundamentals", "Network Implementations",
			"Network Operations", "Network Security", "Network Troubleshooting",
		},
	},
	"CySA+": {
		Key:         "CySA+",
		Name:        "CompTIA Cybersecurity Analyst (CySA+)",
		Description: "Intermediate cybersecurity analyst certification",
		Domains: []string{
			"Threat and Vulnerability Management", "Software and Systems Security",
			"Security Operations and Monitoring", "Incident Response",
			"Compliance and Assessment",
		},
	},
}

// CertificationKeys lists the catalog keys in display order.
var CertificationKeys = []string{"A+", "Security+", "Network+", "CySA+"}

// FindCertification looks up a track by key. The second return value
// reports whether the track exists.
func FindCertification(key string) (Certification, bool) {
	cert, ok := Certifications[key]
	return cert, ok
}

// CyberQuotes are shown by the /quote command and in daily digests.
var CyberQuotes = []string{
	"Cybersecurity is not a product, but a process. – Bruce Schneier",
	"There are only two types of companies in the world: those that have been breached and know it, and those that have been breached and don't know it yet",
	"It takes 20 years to build a reputation and a few minutes of a cyber-incident to ruin it",
	"Total security would mean no connectivity—cybersecurity is about balance",
	"Security is always excessive until it's not enough. – Robbie Sinclair",
	"Only amateurs attack machines. Professionals target people. – Bruce Schneier",
}
