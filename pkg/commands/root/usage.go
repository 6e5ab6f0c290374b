package root

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if and .HasAvailableLocalFlags (ne .Name "ssdpd")}}

Flags:
{{.LocalFlags | wrappedFlagUsages | trimTrailingWhitespaces}}{{end}}

Global Flags:
{{ "Device tree flags:" | indent 4 }}
{{deviceTreeFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "SSDP flags:" | indent 4 }}
{{ssdpFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Network flags:" | indent 4 }}
{{networkFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Description flags:" | indent 4 }}
{{descriptionFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}

{{ "Log flags:" | indent 4 }}
{{logFlags | wrappedFlagUsages | trimTrailingWhitespaces | indent 8}}{{if eq .Name "ssdpd" }}

Use "ssdpd [command] --help" for more information about a command.{{end}}
`

const helpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`
