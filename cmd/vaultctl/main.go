package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	ouroboros "github.com/i5heu/ouroboros-vault"
	"github.com/i5heu/ouroboros-vault/internal/backup"
	"github.com/i5heu/ouroboros-vault/internal/config"
	"github.com/i5heu/ouroboros-vault/pkg/logging"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
)

const usage = `usage: vaultctl [-f root] [-debug] <command> [args]

commands:
  create-vault <name> <media|image>
  put <vault> <key> <file> [aspectRatio]
  get <vault> <key> [outFile]
  ls [vault]
  backup <vault> <archive.tar.xz>
  restore <vault> <archive.tar.xz>
  add-key <key>
  import-keys <secretsFile>
  keys
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "vaultctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("vaultctl", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	root := flags.String("f", config.DefaultRootPath, "root path of the file database")
	debug := flags.Bool("debug", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	args = flags.Args()
	if len(args) == 0 {
		return errUsage
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	log, err := logging.New(logging.Config{Level: level})
	if err != nil {
		return err
	}

	ou, err := ouroboros.New(ouroboros.Config{Paths: []string{*root}, Logger: log})
	if err != nil {
		return err
	}
	if err := ou.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := ou.Close(context.Background()); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}()

	cmd, args := args[0], args[1:]
	switch cmd {
	case "create-vault":
		return createVault(ctx, ou, args, out)
	case "put":
		return put(ctx, ou, args, out, log)
	case "get":
		return get(ctx, ou, args, out)
	case "ls":
		return list(ou, args, out)
	case "backup", "restore":
		return archive(ctx, ou, cmd, args, out)
	case "add-key", "import-keys", "keys":
		return manageKeys(ou, cmd, args, out)
	}
	return errUsage
}

func createVault(ctx context.Context, ou *ouroboros.OuroborosVault, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	vaultType, err := types.ParseVaultType(args[1])
	if err != nil {
		return err
	}
	db, err := ou.DB()
	if err != nil {
		return err
	}
	v, err := db.CreateVault(ctx, types.NewEntryKey(args[0], vaultType))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\t%d entries\n", v.Key().Key, v.Type(), v.Size())
	return nil
}

func put(ctx context.Context, ou *ouroboros.OuroborosVault, args []string, out io.Writer, log *logrus.Logger) error {
	if len(args) != 3 && len(args) != 4 {
		return errUsage
	}
	db, err := ou.DB()
	if err != nil {
		return err
	}
	v, ok := db.VaultByName(args[0])
	if !ok {
		return fmt.Errorf("vault %q not found", args[0])
	}

	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	aspectRatio := types.DefaultAspectRatio
	if len(args) == 4 {
		aspectRatio, err = strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid aspect ratio: %w", err)
		}
	}

	var media types.Binary = types.MediaBinary{FileBinary: types.NewFileBinary(data), Extension: filepath.Ext(args[2])}
	if v.Type() == types.Image {
		media = types.ImageBinary{MediaBinary: media.Media(), AspectRatio: aspectRatio}
	}

	if err := v.AddEntry(ctx, types.NewEntryKey(args[1], v.Type()), media); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"vault": args[0], "entry": args[1]}).Debug("stored")
	fmt.Fprintf(out, "%s/%s\t%d bytes\n", args[0], args[1], len(data))
	return nil
}

func get(ctx context.Context, ou *ouroboros.OuroborosVault, args []string, out io.Writer) error {
	if len(args) != 2 && len(args) != 3 {
		return errUsage
	}
	db, err := ou.DB()
	if err != nil {
		return err
	}
	v, ok := db.VaultByName(args[0])
	if !ok {
		return fmt.Errorf("vault %q not found", args[0])
	}
	media, ok, err := v.GetEntry(ctx, types.NewEntryKey(args[1], v.Type()))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("entry %q not found in vault %q", args[1], args[0])
	}

	if len(args) == 3 {
		return os.WriteFile(args[2], media.Media().Bytes, 0o644)
	}
	_, err = out.Write(media.Media().Bytes)
	return err
}

func list(ou *ouroboros.OuroborosVault, args []string, out io.Writer) error {
	db, err := ou.DB()
	if err != nil {
		return err
	}

	switch len(args) {
	case 0:
		for _, v := range db.Vaults() {
			fmt.Fprintf(out, "%s\t%s\t%d entries\n", v.Key().Key, v.Type(), v.Size())
		}
		return nil
	case 1:
		v, ok := db.VaultByName(args[0])
		if !ok {
			return fmt.Errorf("vault %q not found", args[0])
		}
		for _, key := range v.Entries() {
			meta, _ := v.MetaData(key)
			fmt.Fprintf(out, "%s\t%s\t%s\n", key.Key, meta.MediaKey, types.MimeType(meta.Extension))
		}
		return nil
	}
	return errUsage
}

func manageKeys(ou *ouroboros.OuroborosVault, cmd string, args []string, out io.Writer) error {
	keys, err := ou.Keys()
	if err != nil {
		return err
	}

	switch {
	case cmd == "add-key" && len(args) == 1:
		return keys.Add(args[0])
	case cmd == "import-keys" && len(args) == 1:
		n, err := keys.ImportFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %d keys\n", n)
		return nil
	case cmd == "keys" && len(args) == 0:
		list, err := keys.Keys()
		if err != nil {
			return err
		}
		for _, k := range list {
			fmt.Fprintln(out, k)
		}
		return nil
	}
	return errUsage
}

func archive(ctx context.Context, ou *ouroboros.OuroborosVault, cmd string, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	db, err := ou.DB()
	if err != nil {
		return err
	}
	v, ok := db.VaultByName(args[0])
	if !ok {
		return fmt.Errorf("vault %q not found", args[0])
	}

	if cmd == "restore" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := backup.RestoreVault(ctx, v, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "restored %d entries\n", n)
		return nil
	}

	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	n, err := backup.BackupVault(ctx, v, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "backed up %d entries\n", n)
	return nil
}
