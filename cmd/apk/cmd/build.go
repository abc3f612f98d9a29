package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apkforge/apk"
)

var buildCmd = &cobra.Command{
	Use:   "build [data-dir]",
	Short: "Assemble a package archive from a staged payload directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(buildCmd)

	fl := buildCmd.Flags()
	fl.StringP("manifest", "m", "package.yaml", "path to the YAML build manifest")
	fl.StringP("output", "o", "", "output path (default <name>-<version>.apk)")
	fl.String("sign-key", "", "private signing key; signing is enabled when set")
	fl.String("key-id", "", "public key identifier (default derived from the key filename)")
	fl.Bool("data-hash", true, "record the payload content hash in the metadata")
	fl.String("hash", string(apk.HashSHA256), "content hash algorithm (sha256 or sha1)")
	fl.String("checksum-helper", "", "external helper fed the raw payload tar stream")

	// Every build flag can also come from the APK_* environment.
	if err := vip.BindPFlags(fl); err != nil {
		panic(err)
	}
}

func runBuild(_ *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pkg, err := loadManifest(vip.GetString("manifest"))
	if err != nil {
		return err
	}

	opts := []apk.BuildOption{
		apk.BuildWithHashAlgorithm(apk.HashAlgorithm(vip.GetString("hash"))),
	}
	if !vip.GetBool("data-hash") {
		opts = append(opts, apk.BuildWithoutDataHash())
	}
	if keyPath := vip.GetString("sign-key"); keyPath != "" {
		var keyOpts []apk.KeyOption
		if id := vip.GetString("key-id"); id != "" {
			keyOpts = append(keyOpts, apk.KeyWithID(id))
		}
		if pass := vip.GetString("key-passphrase"); pass != "" {
			keyOpts = append(keyOpts, apk.KeyWithPassphrase([]byte(pass)))
		}
		opts = append(opts, apk.BuildWithKeyFile(keyPath, keyOpts...))
	}
	if helper := vip.GetString("checksum-helper"); helper != "" {
		opts = append(opts, apk.BuildWithChecksumHelper(helper))
	}

	log.Infow("building package",
		"name", pkg.Name, "version", pkg.Version, "arch", pkg.Arch,
		"dir", args[0])

	f, err := apk.Build(ctx, pkg, args[0], opts...)
	if err != nil {
		return err
	}

	out := vip.GetString("output")
	if out == "" {
		out = fmt.Sprintf("%s-%s.apk", pkg.Name, pkg.Version)
	}
	if err := f.Save(out); err != nil {
		return err
	}

	built := f.Package()
	log.Infow("package built",
		"path", out,
		"bytes", len(f.Bytes()),
		"installed_size", built.Size,
		"datahash", built.DataHash)
	return nil
}
