package models

// Organization is a member of the document-sharing network. Channels lists the
// ledgers its users may work on.
type Organization struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
}

func (o *Organization) HasChannel(channel string) bool {
	for _, c := range o.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// DefaultOrganizations is the network layout used when ORG_CHANNELS is unset.
func DefaultOrganizations() map[string]*Organization {
	return map[string]*Organization{
		"org1": {ID: "org1", Name: "Taizhou Haineng New Energy Group Co. Ltd.", Channels: []string{"channel1", "channel2", "channel4"}},
		"org2": {ID: "org2", Name: "FanPower (Design consultant)", Channels: []string{"channel1", "channel2", "channel3"}},
		"org3": {ID: "org3", Name: "Jiangsu Haichi Construction Co., Ltd. (Contractor)", Channels: []string{"channel2"}},
		"org4": {ID: "org4", Name: "PV Storage System Suppliers Company (PV Storage System Suppliers)", Channels: []string{"channel3"}},
		"org5": {ID: "org5", Name: "FM Company (Facilities Manager)", Channels: []string{"channel4"}},
	}
}
