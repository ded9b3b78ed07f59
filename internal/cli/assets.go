package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/xcmreserve/internal/ir"
	"github.com/roach88/xcmreserve/internal/location"
)

// assetsFile is the YAML registry import format. Byte strings must be
// quoted so YAML does not read them as integers:
//
//	assets:
//	  - parents: 1
//	    interior: [{parachain: 2000}]
//	  - parents: 2
//	    interior:
//	      - global_consensus: {ethereum: {chain_id: 1}}
//	      - account_key20: {key: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"}
type assetsFile struct {
	Assets []any `yaml:"assets"`
}

// ImportResult summarizes an assets import.
type ImportResult struct {
	File     string `json:"file"`
	Total    int    `json:"total"`
	Added    int    `json:"added"`
	Existing int    `json:"existing"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("✓ Imported %d asset(s) from %s: %d added, %d already registered",
		r.Total, r.File, r.Added, r.Existing)
}

// AssetView is one registered asset with its stored reserve records.
type AssetView struct {
	AssetKey string          `json:"asset_key"`
	Asset    string          `json:"asset"`
	Location json.RawMessage `json:"location"`
	Reserves json.RawMessage `json:"reserves,omitempty"`
}

// AssetList is the output of assets list.
type AssetList struct {
	Assets []AssetView `json:"assets"`
}

func (l AssetList) String() string {
	if len(l.Assets) == 0 {
		return "No registered assets"
	}
	var b strings.Builder
	for i, a := range l.Assets {
		if i > 0 {
			b.WriteByte('\n')
		}
		reserves := "(not migrated)"
		if a.Reserves != nil {
			reserves = string(a.Reserves)
		}
		fmt.Fprintf(&b, "%s  %s\n    reserves: %s", a.AssetKey, a.Asset, reserves)
	}
	return b.String()
}

// NewAssetsCommand creates the assets command group.
func NewAssetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the foreign asset registry",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Register the asset locations listed in a YAML file",
		Long: `Register every location under the top-level "assets" key of a YAML
file. Already registered assets are left untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetsImport(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List registered assets and their stored reserve records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetsList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "remove <location-json>",
		Short:         "Remove an asset and its reserve records from the registry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetsRemove(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

// loadAssetsFile parses a YAML registry file into locations.
func loadAssetsFile(path string) ([]location.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file assetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	assets := make([]location.Location, 0, len(file.Assets))
	for i, raw := range file.Assets {
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
		l, err := location.FromIR(v)
		if err != nil {
			return nil, fmt.Errorf("assets[%d]: %w", i, err)
		}
		assets = append(assets, l)
	}
	return assets, nil
}

func runAssetsImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := os.Stat(path); err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	assets, err := loadAssetsFile(path)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
	}

	backend, err := e.openStore()
	if err != nil {
		return err
	}
	defer backend.Close()

	result := ImportResult{File: path, Total: len(assets)}
	for _, asset := range assets {
		added, err := backend.RegisterAsset(cmd.Context(), asset)
		if err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		if added {
			result.Added++
			e.formatter.VerboseLog("Registered %s", asset)
		} else {
			result.Existing++
		}
	}
	return e.formatter.Success(result)
}

func runAssetsList(opts *RootOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	backend, err := e.openStore()
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := cmd.Context()
	assets, err := backend.ForeignAssets(ctx)
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	list := AssetList{Assets: make([]AssetView, 0, len(assets))}
	for _, asset := range assets {
		key, err := asset.Key()
		if err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		loc, err := ir.MarshalCanonical(asset.ToIR())
		if err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		raw, ok, err := backend.RawReserves(ctx, asset)
		if err != nil {
			return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		view := AssetView{AssetKey: key, Asset: asset.String(), Location: loc}
		if ok {
			view.Reserves = raw
		}
		list.Assets = append(list.Assets, view)
	}
	return e.formatter.Success(list)
}

func runAssetsRemove(opts *RootOptions, arg string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	asset, err := location.ParseJSON([]byte(arg))
	if err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err)
	}

	backend, err := e.openStore()
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.RemoveAsset(cmd.Context(), asset); err != nil {
		return e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return e.formatter.Success(fmt.Sprintf("✓ Removed %s", asset))
}
