package config

import (
	"os"
	"path"
	"strings"

	"github.com/abcfe/hive-wallet/common/utils"
	prt "github.com/abcfe/hive-wallet/protocol"
	"github.com/naoina/toml"
)

type Common struct {
	Level       string `toml:"Level"` // local, dev, prod, alpha
	ServiceName string `toml:"ServiceName"`
}

type LogInfo struct {
	Path       string `toml:"Path"`
	MaxAgeHour int    `toml:"MaxAgeHour"`
	RotateHour int    `toml:"RotateHour"`
}

// Storage is the durable credential store.
type Storage struct {
	Path   string `toml:"Path"`
	Prefix string `toml:"Prefix"` // key namespace, e.g. "hivewallet_"
}

type Chain struct {
	Nodes         []string `toml:"Nodes"`         // JSON-RPC endpoints, tried in order for reads
	ChainID       string   `toml:"ChainID"`       // hex
	ExpirationSec int      `toml:"ExpirationSec"` // transaction expiration past head block time
	TimeoutSec    int      `toml:"TimeoutSec"`
	AccountIndex  uint32   `toml:"AccountIndex"` // default hierarchical account index
}

type HostedSigner struct {
	URL        string `toml:"URL"`
	TimeoutSec int    `toml:"TimeoutSec"`
}

type Keychain struct {
	BridgeURL  string `toml:"BridgeURL"` // ws:// endpoint of the extension relay
	TimeoutSec int    `toml:"TimeoutSec"`
}

type Server struct {
	Host           string   `toml:"Host"`
	RestPort       int      `toml:"RestPort"`
	APIToken       string   `toml:"APIToken"`       // bearer token for signing routes, empty disables
	AllowedOrigins []string `toml:"AllowedOrigins"` // browser origins allowed to call the API
}

type Cache struct {
	Size   int `toml:"Size"`
	TTLSec int `toml:"TTLSec"`
}

type Config struct {
	Common       Common
	LogInfo      LogInfo
	Storage      Storage
	Chain        Chain
	HostedSigner HostedSigner
	Keychain     Keychain
	Server       Server
	Cache        Cache
}

// DefaultPath is ~/.hive-wallet/config.toml. A source checkout without a
// user config falls back to config/config.toml at the project root.
func DefaultPath() string {
	userPath := path.Join(utils.AppDir(), "config.toml")
	if utils.FileExists(userPath) {
		return userPath
	}
	workDir, err := os.Getwd()
	if err != nil {
		return userPath
	}
	if root, ok := utils.ProjectRoot(workDir); ok {
		if dev := path.Join(root, "config", "config.toml"); utils.FileExists(dev) {
			return dev
		}
	}
	return userPath
}

// NewConfig reads filepath, or DefaultPath when it is empty.
func NewConfig(filepath string) (*Config, error) {
	if filepath == "" {
		filepath = DefaultPath()
	}

	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	c := new(Config)
	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return nil, err
	}
	c.sanitize()
	return c, nil
}

// Default returns a configuration usable without a file.
func Default() *Config {
	c := new(Config)
	c.sanitize()
	return c
}

func (p *Config) sanitize() {
	if p.Common.ServiceName == "" {
		p.Common.ServiceName = "hive-wallet"
	}
	if p.Common.Level == "" {
		p.Common.Level = "prod"
	}
	if p.LogInfo.Path == "" {
		p.LogInfo.Path = "~/.hive-wallet/logs/walletd"
	}
	if p.LogInfo.MaxAgeHour == 0 {
		p.LogInfo.MaxAgeHour = 24 * 7
	}
	if p.LogInfo.RotateHour == 0 {
		p.LogInfo.RotateHour = 24
	}
	if p.Storage.Path == "" {
		p.Storage.Path = "~/.hive-wallet/credentials"
	}
	if p.Storage.Prefix == "" {
		p.Storage.Prefix = "hivewallet_"
	}
	if len(p.Chain.Nodes) == 0 {
		p.Chain.Nodes = []string{"https://api.hive.blog"}
	}
	if p.Chain.ChainID == "" {
		p.Chain.ChainID = prt.HiveChainID
	}
	if p.Chain.ExpirationSec == 0 {
		p.Chain.ExpirationSec = 60
	}
	if p.Chain.TimeoutSec == 0 {
		p.Chain.TimeoutSec = 15
	}
	if p.HostedSigner.URL == "" {
		p.HostedSigner.URL = "https://hivesigner.com"
	}
	if p.HostedSigner.TimeoutSec == 0 {
		p.HostedSigner.TimeoutSec = 15
	}
	if p.Keychain.TimeoutSec == 0 {
		p.Keychain.TimeoutSec = 120
	}
	if p.Server.Host == "" {
		p.Server.Host = "127.0.0.1"
	}
	if p.Server.RestPort == 0 {
		p.Server.RestPort = 8090
	}
	if p.Cache.Size == 0 {
		p.Cache.Size = 512
	}
	if p.Cache.TTLSec == 0 {
		p.Cache.TTLSec = 30
	}

	p.LogInfo.Path = expandHome(p.LogInfo.Path)
	p.Storage.Path = expandHome(p.Storage.Path)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		return path.Join(utils.HomeDir(), p[1:])
	}
	return p
}
