package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/sealfile/cmd"
	"github.com/illarion/sealfile/internal/config"
	"github.com/illarion/sealfile/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encrypt":
		runEncrypt(ctx, os.Args[2:])
	case "decrypt":
		runDecrypt(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "forget":
		runForget(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newApp loads .sealfile.yaml and SEALFILE_* settings for the current directory
func newApp() *cmd.App {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return &cmd.App{Config: cfg, Log: logger.NewLogger(cfg.LogLevel)}
}

// parseFlags parses a command's flags, exiting on error
func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// fileFlags are shared by encrypt and decrypt
type fileFlags struct {
	removeShort *bool
	removeLong  *bool
	force       *bool
	workers     *int
}

func addFileFlags(fs *flag.FlagSet, removeHelp, forceHelp string) *fileFlags {
	return &fileFlags{
		removeShort: fs.Bool("r", false, removeHelp),
		removeLong:  fs.Bool("remove", false, removeHelp),
		force:       fs.Bool("force", false, forceHelp),
		workers:     fs.Int("workers", 0, "Number of files processed in parallel"),
	}
}

// apply lets command line flags override the loaded config
func (f *fileFlags) apply(app *cmd.App) {
	app.Config.Remove = app.Config.Remove || *f.removeShort || *f.removeLong
	app.Config.Force = app.Config.Force || *f.force
	if *f.workers > 0 {
		app.Config.Workers = *f.workers
	}
}

func runEncrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	flags := addFileFlags(fs, "Remove original files after encrypting", "Overwrite existing envelopes")
	parseFlags(fs, args)

	app := newApp()
	flags.apply(app)
	cmd.Encrypt(ctx, app, fs.Args())
}

func runDecrypt(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	flags := addFileFlags(fs, "Remove envelopes after decrypting", "Overwrite local files that differ")
	keepLocal := fs.Bool("keep-local", false, "Skip all conflicts, keep local versions")
	keepBoth := fs.Bool("keep-both", false, "Keep both local and envelope versions")
	parseFlags(fs, args)

	app := newApp()
	flags.apply(app)
	cmd.Decrypt(ctx, app, fs.Args(), *keepLocal, *keepBoth)
}

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Verify(ctx, newApp(), fs.Args())
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Diff(ctx, newApp(), fs.Args())
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Status(ctx, newApp())
}

func runForget(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Forget(ctx, newApp(), fs.Args())
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Compact(ctx, newApp())
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealfile keyring <save|delete|status>")
		os.Exit(1)
	}

	app := newApp()
	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx, app)
	case "delete":
		cmd.KeyringDelete(ctx, app)
	case "status":
		cmd.KeyringStatus(ctx, app)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: sealfile keyring <save|delete|status>")
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealfile completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("sealfile - Password-based file encryption")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sealfile <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  encrypt     Encrypt files into .enc envelopes")
	fmt.Println("  decrypt     Decrypt .enc envelopes")
	fmt.Println("  verify      Check envelopes without a password")
	fmt.Println("  diff        Compare envelopes with local files")
	fmt.Println("  status      Show catalog status")
	fmt.Println("  forget      Remove envelopes from the catalog")
	fmt.Println("  compact     Compact the catalog to reclaim disk space")
	fmt.Println("  keyring     Manage the password in the OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sealfile encrypt -r .env        # Encrypt .env and remove original")
	fmt.Println("  sealfile decrypt .env.enc       # Restore .env")
	fmt.Println("  sealfile decrypt                # Restore every cataloged file")
	fmt.Println("  sealfile status                 # Check catalog status")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  SEALFILE_PASSWORD    Password, skips the prompt")
	fmt.Println("  SEALFILE_LOG_LEVEL   debug, info, warn or error")
	fmt.Println("  SEALFILE_WORKERS     Files processed in parallel")
	fmt.Println("  SEALFILE_CATALOG     Catalog file, empty to disable")
	fmt.Println("  SEALFILE_KEYRING     Use the OS keyring (true/false)")
	fmt.Println()
	fmt.Println("Use 'sealfile help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "encrypt":
		fmt.Println("sealfile encrypt [-r|--remove] [--force] [--workers N] <file> [file...]")
		fmt.Println()
		fmt.Println("Encrypts each file into <file>.enc using a password.")
		fmt.Println("The envelope is salt (16 bytes), IV (16 bytes) and AES-256-CBC ciphertext,")
		fmt.Println("keyed with PBKDF2-HMAC-SHA256 (100,000 iterations).")
		fmt.Println("Each envelope is recorded in the .sealfile catalog.")
		fmt.Println("Supports glob patterns for multiple files.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -r, --remove    Remove original files after encrypting")
		fmt.Println("  --force         Overwrite existing envelopes")
		fmt.Println("  --workers N     Number of files processed in parallel")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  sealfile encrypt .env")
		fmt.Println("  sealfile encrypt --remove .env")
		fmt.Println("  sealfile encrypt \"config/*.secret\"")
	case "decrypt":
		fmt.Println("sealfile decrypt [-r|--remove] [--force|--keep-local|--keep-both] [<file> [file...]]")
		fmt.Println()
		fmt.Println("Decrypts envelopes next to themselves: <file>.enc becomes <file>,")
		fmt.Println("any other name gets a .dec suffix.")
		fmt.Println("When run without file arguments, decrypts every cataloged envelope.")
		fmt.Println("Files with the same content are skipped.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -r, --remove   Remove envelopes after decrypting")
		fmt.Println("  --force        Overwrite local files that differ")
		fmt.Println("  --keep-local   Skip all conflicts, keep local versions")
		fmt.Println("  --keep-both    Keep both versions (save envelope as .from-envelope)")
		fmt.Println("  --workers N    Number of files processed in parallel")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  sealfile decrypt .env.enc")
		fmt.Println("  sealfile decrypt --keep-both")
	case "verify":
		fmt.Println("sealfile verify [<file> [file...]]")
		fmt.Println()
		fmt.Println("Checks envelope structure, and the catalog digest for cataloged envelopes.")
		fmt.Println("Does not require a password.")
	case "diff":
		fmt.Println("sealfile diff [<file> [file...]]")
		fmt.Println()
		fmt.Println("Decrypts envelopes in memory and shows a unified diff against")
		fmt.Println("the local plaintext files.")
	case "status":
		fmt.Println("sealfile status")
		fmt.Println()
		fmt.Println("Shows the catalog including:")
		fmt.Println("  - File count and total size")
		fmt.Println("  - Envelope states (ok, modified, missing)")
		fmt.Println("  - Whether plaintext files are ignored by git")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "forget":
		fmt.Println("sealfile forget <file> [file...]")
		fmt.Println()
		fmt.Println("Removes envelopes from the catalog. The files are left in place.")
	case "compact":
		fmt.Println("sealfile compact")
		fmt.Println()
		fmt.Println("Compacts the .sealfile catalog to reclaim unused disk space.")
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("sealfile keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Stores the password in the OS keyring, keyed by the catalog id.")
	case "completion":
		fmt.Println("sealfile completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(sealfile completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(sealfile completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  sealfile completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
