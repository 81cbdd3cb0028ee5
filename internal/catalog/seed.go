package catalog

import "wincvex/internal/model"

// Seed returns a fresh copy of the lab's machines and their flaws, all
// disabled.
func Seed() []Entry {
	return []Entry{
		{MachineID: "wincvex-dc", Vulns: []model.Vulnerability{
			{
				Key:         "weak_smb_signing",
				Title:       "Weak SMB Signing",
				Description: "SMB signing disabled allows MITM.",
				Fix:         "Enable SMB signing via GPO and restart service.",
			},
			{
				Key:         "anonymous_ldap_binds",
				Title:       "Anonymous LDAP Binds",
				Description: "LDAP allows anonymous bind.",
				Fix:         "Disallow anonymous bind in directory service.",
			},
		}},
		{MachineID: "wincvex-host-b", Vulns: []model.Vulnerability{
			{
				Key:         "outdated_packages",
				Title:       "Outdated Packages",
				Description: "Critical updates missing.",
				Fix:         "Apply latest security updates.",
			},
		}},
		{MachineID: "wincvex-host-c", Vulns: []model.Vulnerability{
			{
				Key:         "open_firewall_port",
				Title:       "Open Firewall Port",
				Description: "Unnecessary inbound port exposed.",
				Fix:         "Close the port or restrict source IPs.",
			},
		}},
	}
}

// ForAgent returns the single-machine seed an agent runtime starts from. An
// id outside the lab gets every known flaw.
func ForAgent(agentID string) []Entry {
	all := Seed()
	for _, e := range all {
		if e.MachineID == agentID {
			return []Entry{e}
		}
	}
	merged := Entry{MachineID: agentID}
	for _, e := range all {
		merged.Vulns = append(merged.Vulns, e.Vulns...)
	}
	return []Entry{merged}
}
