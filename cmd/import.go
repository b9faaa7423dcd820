package cmd

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"thunder-mod-manager/logger"
	"thunder-mod-manager/profile"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Add a local mod file to the active profile",
	Long: `Imports a mod that is not on Thunderstore. The file is fingerprinted
so re-imports of the same content are recognizable. Local mods take no
part in dependency resolution.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		version, _ := cmd.Flags().GetString("version")
		runImport(args[0], name, version)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("name", "", "Display name (defaults to the file name)")
	importCmd.Flags().String("version", "", "Display version, e.g. 0.1.0")
}

func runImport(path, name, version string) {
	a := bootstrap(".")
	a.activeGame()
	info := a.activeProfile()

	absPath, err := filepath.Abs(path)
	if err != nil {
		logger.Log.Fatalw("Invalid path", zap.String("path", path), zap.Error(err))
	}
	if _, err := os.Stat(absPath); err != nil {
		logger.Log.Fatalw("File not found", zap.String("path", absPath), zap.Error(err))
	}

	hash, err := calculateSHA1(absPath)
	if err != nil {
		logger.Log.Fatalw("Failed to fingerprint file", zap.String("path", absPath), zap.Error(err))
	}

	if name == "" {
		base := filepath.Base(absPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	added, err := a.profiles.AddMod(info.Profile.ID, profile.LocalSource{
		Name:    name,
		Version: version,
		Path:    absPath,
		SHA1:    hash,
	})
	if err != nil {
		logger.Log.Fatalw("Failed to import local mod", zap.String("name", name), zap.Error(err))
	}

	logger.Log.Infow("Imported local mod",
		zap.String("name", name),
		zap.String("sha1", hash),
	)
	fmt.Printf("Imported %s at position %d.\n", name, added.OrderIndex)
}

func calculateSHA1(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha1.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
