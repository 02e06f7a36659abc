package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LotFile is the topology/fee-table/operators document the deployment
// supplies. Fee coverage of the topology is validated during parking lot
// construction, not here.
type LotFile struct {
	Name      string            `mapstructure:"name"`
	Location  string            `mapstructure:"location"`
	Levels    []LotLevel        `mapstructure:"levels"`
	Gates     []LotGate         `mapstructure:"gates"`
	Fees      map[string]LotFee `mapstructure:"fees"`
	Operators []LotOperator     `mapstructure:"operators"`
}

type LotLevel struct {
	Name string   `mapstructure:"name"`
	Rows []LotRow `mapstructure:"rows"`
}

type LotRow struct {
	Name  string    `mapstructure:"name"`
	Spots []LotSpot `mapstructure:"spots"`
}

type LotSpot struct {
	Name string `mapstructure:"name"`
	Type string `mapstructure:"type"`
}

type LotGate struct {
	ID        string `mapstructure:"id"`
	Direction string `mapstructure:"direction"`
}

type LotFee struct {
	BaseFee   float64 `mapstructure:"base_fee"`
	PerMinute float64 `mapstructure:"per_minute"`
}

type LotOperator struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

func LoadLot(path string) (*LotFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read lot config: %w", err)
	}

	var lot LotFile
	if err := v.Unmarshal(&lot); err != nil {
		return nil, fmt.Errorf("parse lot config: %w", err)
	}

	if lot.Name == "" {
		return nil, fmt.Errorf("lot config: name is required")
	}
	if len(lot.Levels) == 0 {
		return nil, fmt.Errorf("lot config: at least one level is required")
	}
	if len(lot.Gates) == 0 {
		return nil, fmt.Errorf("lot config: at least one gate is required")
	}

	return &lot, nil
}
