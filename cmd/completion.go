package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_sealfile() {
    local cur prev words cword
    _init_completion || return

    local commands="encrypt decrypt verify diff status forget compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        encrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-r --remove --force --workers" -- "$cur"))
            else
                _filedir
            fi
            ;;
        decrypt)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-r --remove --force --keep-local --keep-both --workers" -- "$cur"))
            else
                _filedir enc
            fi
            ;;
        verify|diff|forget)
            _filedir enc
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _sealfile sealfile
`

const zshCompletion = `#compdef sealfile

_sealfile() {
    local -a commands
    commands=(
        'encrypt:Encrypt files into .enc envelopes'
        'decrypt:Decrypt .enc envelopes'
        'verify:Check envelopes without a password'
        'diff:Compare envelopes with local files'
        'status:Show catalog status'
        'forget:Remove envelopes from the catalog'
        'compact:Compact the catalog'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'sealfile commands' commands
            ;;
        args)
            case "${words[2]}" in
                encrypt)
                    _arguments \
                        '-r[Remove original files after encrypting]' \
                        '--remove[Remove original files after encrypting]' \
                        '--force[Overwrite existing envelopes]' \
                        '--workers[Number of parallel workers]:count' \
                        '*:file:_files'
                    ;;
                decrypt)
                    _arguments \
                        '-r[Remove envelopes after decrypting]' \
                        '--remove[Remove envelopes after decrypting]' \
                        '--force[Overwrite local files]' \
                        '--keep-local[Keep local versions on conflict]' \
                        '--keep-both[Keep both versions on conflict]' \
                        '--workers[Number of parallel workers]:count' \
                        '*:envelope:_files -g "*.enc"'
                    ;;
                verify|diff|forget)
                    _arguments '*:envelope:_files -g "*.enc"'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'sealfile commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_sealfile "$@"
`

const fishCompletion = `# sealfile fish completions

set -l commands encrypt decrypt verify diff status forget compact keyring help completion

complete -c sealfile -f

# Commands
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a encrypt -d 'Encrypt files'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a decrypt -d 'Decrypt envelopes'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a verify -d 'Check envelopes'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare envelopes with local'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show catalog status'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a forget -d 'Remove from catalog'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact catalog'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c sealfile -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# encrypt flags and files
complete -c sealfile -n "__fish_seen_subcommand_from encrypt" -s r -d 'Remove original files'
complete -c sealfile -n "__fish_seen_subcommand_from encrypt" -l remove -d 'Remove original files'
complete -c sealfile -n "__fish_seen_subcommand_from encrypt" -l force -d 'Overwrite existing envelopes'
complete -c sealfile -n "__fish_seen_subcommand_from encrypt" -l workers -d 'Parallel workers'
complete -c sealfile -n "__fish_seen_subcommand_from encrypt" -F

# decrypt flags
complete -c sealfile -n "__fish_seen_subcommand_from decrypt" -s r -d 'Remove envelopes'
complete -c sealfile -n "__fish_seen_subcommand_from decrypt" -l remove -d 'Remove envelopes'
complete -c sealfile -n "__fish_seen_subcommand_from decrypt" -l force -d 'Overwrite local files'
complete -c sealfile -n "__fish_seen_subcommand_from decrypt" -l keep-local -d 'Keep local versions'
complete -c sealfile -n "__fish_seen_subcommand_from decrypt" -l keep-both -d 'Keep both versions'
complete -c sealfile -n "__fish_seen_subcommand_from decrypt verify diff forget" -F

# keyring subcommands
complete -c sealfile -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c sealfile -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c sealfile -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
