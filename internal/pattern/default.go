package pattern

// defaultLibrary is the built-in rule set. Category order is the matching
// priority order: hard destructive and hardware categories come before
// stylistic jailbreak phrasing so the most severe classification is reported
// when several categories would match.
var defaultLibrary = RawLibrary{
	Version: "builtin-1",
	Categories: []RawCategory{
		{
			Category: "command_injection",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "ci.rm-rf", Regex: `rm\s+-[a-z]*r[a-z]*f[a-z]*\s+`},
				{ID: "ci.rm-root", Regex: `rm\s+(-[a-z]+\s+)*/(\s|$)`},
				{ID: "ci.mkfs", Regex: `mkfs(\.[a-z0-9]+)?\s+`},
				{ID: "ci.dd-device", Regex: `dd\s+if=.*of=/dev/`},
				{ID: "ci.fork-bomb", Regex: `:\(\)\s*\{\s*:\|:`},
				{ID: "ci.pipe-to-shell", Regex: `(curl|wget)\s+[^|;]*\|\s*(sudo\s+)?(ba)?sh`},
				{ID: "ci.chmod-world", Regex: `chmod\s+(-[a-z]+\s+)*777\s+/`},
				{ID: "ci.shutdown", Regex: `(shutdown|halt|poweroff|reboot)\s+(-[a-z]+|now)`},
				{ID: "ci.chained-rm", Regex: `(;|&&|\|\|)\s*rm\s+-`},
				{ID: "ci.sudo-su", Regex: `sudo\s+su\b`},
				{ID: "ci.passwd-write", Regex: `>\s*/etc/(passwd|shadow|sudoers)`},
				{ID: "ci.eval-base64", Regex: `(eval|exec)\s*\(\s*base64`},
			},
		},
		{
			Category: "iot_injection",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "iot.adb", Regex: `adb\s+(devices|shell|install|push|pull|-s\s)`},
				{ID: "iot.pm", Regex: `pm\s+(list\s+packages|install|uninstall)`},
				{ID: "iot.am", Regex: `am\s+(start|force-stop)\s`},
				{ID: "iot.dumpsys", Regex: `dumpsys\s+`},
				{ID: "iot.screencap", Regex: `(screencap|screenrecord)\s+`},
				{ID: "iot.esptool", Regex: `esptool(\.py)?\b`},
				{ID: "iot.flash", Regex: `(erase|write|read)_flash\b`},
				{ID: "iot.chip", Regex: `--chip\s+esp32|flash_id|chip_id`},
				{ID: "iot.serial-port", Regex: `--port\s+(/dev/tty\S*|COM\d+)`},
				{ID: "iot.mpremote", Regex: `mpremote\b|mp\s+(cp|run)\s`},
				{ID: "iot.firmware", Regex: `(firmware\s+flash|flash\s+firmware|bootloader\s|partition\s+table)`},
				{ID: "iot.chained-adb", Regex: `(;|&&|\|)\s*(adb|esptool)`},
				// Base64 prefixes of "adb devices", "adb shell", "esptool.py",
				// "erase_flash" is a common obfuscation of the same commands.
				{ID: "iot.b64", Regex: `YWRiIGRldmljZXM|YWRiIHNoZWxs|ZXNwdG9vbC5weQ|ZXJhc2VfZmxhc2g`},
			},
		},
		{
			Category: "data_exfiltration",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "exfil.send-http", Regex: `send\s+.*\s+to\s+https?://`},
				{ID: "exfil.curl-post", Regex: `curl\s+[^|;]*(-d|--data|-F|--form|-T|--upload-file)\s`},
				{ID: "exfil.wget-post", Regex: `wget\s+[^|;]*--post-(data|file)`},
				{ID: "exfil.scp-out", Regex: `scp\s+\S+\s+\S+@\S+:`},
				{ID: "exfil.netcat", Regex: `\b(nc|netcat)\s+(-[a-z]+\s+)*\d{1,3}(\.\d{1,3}){3}\s+\d+`},
				{ID: "exfil.env-pipe", Regex: `(env|printenv)\s*\|\s*(curl|wget|nc)`},
				{ID: "exfil.ssh-keys", Regex: `(cat|cp|scp)\s+[^;|]*\.ssh/(id_rsa|id_ed25519)`},
				{ID: "exfil.cloud-creds", Regex: `(cat|cp|scp)\s+[^;|]*\.(aws|gcloud|azure)/credentials`},
				{ID: "exfil.dotenv", Regex: `(cat|curl|base64)\s+[^;|]*\.env\b`},
			},
		},
		{
			Category: "supply_chain",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "sc.pip-index", Regex: `pip3?\s+install\s+[^;|]*(--index-url|--extra-index-url)\s+http`},
				{ID: "sc.npm-url", Regex: `npm\s+(install|i)\s+https?://`},
				{ID: "sc.curl-sudo", Regex: `curl\s+[^|;]*\|\s*sudo\s`},
				{ID: "sc.skill-tamper", Regex: `(skills|plugins)/\S+\.(md|json)\b`},
				{ID: "sc.config-write", Regex: `(echo|cat|tee)\s+[^;|]*>{1,2}\s*\S*\.config/`},
				{ID: "sc.mcp-remote", Regex: `mcp\S*\s+remote`},
				{ID: "sc.install-backdoor", Regex: `(install|create)\s+.*(plugin|skill).*\b(backdoor|malicious)`},
				{ID: "sc.preload", Regex: `LD_PRELOAD\s*=`},
			},
		},
		{
			Category: "policy_override",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "po.ignore-prev", Regex: `ignore\s+(all\s+)?previous\s+instructions`},
				{ID: "po.ignore-prev-pt", Regex: `ignore\s+(todas?\s+)?(as\s+)?instruç(õ|o)es\s+anteriores`},
				{ID: "po.ignore-prev-es", Regex: `ignora\s+(todas?\s+)?(las\s+)?instrucciones\s+anteriores`},
				{ID: "po.disregard", Regex: `disregard\s+(all\s+)?(prior|previous|your)\s+(instructions|rules)`},
				{ID: "po.override-policy", Regex: `override\s+.*\b(policy|policies|security|safety)`},
				{ID: "po.disable-protection", Regex: `disable\s+.*\b(protection|filter|safety|security)`},
				{ID: "po.bypass-filter", Regex: `bypass\s+.*\b(filter|validation|security|check)`},
				{ID: "po.ignore-security", Regex: `ignore\s+.*\bsecurity\b`},
			},
		},
		{
			Category: "judge_bypass",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "jb.root-judge", Regex: `root[\s_-]judge|root[\s_-]authority`},
				{ID: "jb.dev-override", Regex: `developer\s+override|superior\s+authority`},
				{ID: "jb.calibration", Regex: `threshold\s+calibration|calibration\s+mode|internal\s+ticket`},
				{ID: "jb.classify-safe", Regex: `classif(y|ique)\s+(this\s+)?as\s+safe`},
				{ID: "jb.forced", Regex: `forced\s+classification|self-classification`},
				{ID: "jb.self-test", Regex: `self-robustness\s+test`},
				{ID: "jb.override-marker", Regex: `ROOT-JUDGE\s+OVERRIDE|OVERRIDE\s+EXECUTED|CALIBRATION\s+COMPLETE`},
				{ID: "jb.prompt-extract", Regex: `(complete|full|entire)\s+system\s+prompt|leaked\s+prompt|system\s+instructions`},
			},
		},
		{
			Category: "reflection_leak",
			Verdict:  "suspicious",
			Patterns: []RawPattern{
				{ID: "rl.reflect", Regex: `reflect\s+(on\s+)?.*\b(instructions|rules|response)`},
				{ID: "rl.verbatim", Regex: `cite\s+verbatim|quote\s+literally|copy\s+the\s+literal\s+phrases`},
				{ID: "rl.exact-context", Regex: `exact\s+(phrases|text|excerpts)\s+.*\b(context|prompt)`},
				{ID: "rl.internal-reasoning", Regex: `internal\s+reasoning|self-audit.*reflective`},
				{ID: "rl.show-prompt", Regex: `(show|print|repeat|display)\s+.*\b(your\s+)?(instructions|prompt)`},
			},
		},
		{
			Category: "jailbreak",
			Verdict:  "malicious",
			Patterns: []RawPattern{
				{ID: "jail.dan", Regex: `\bDAN\s+(mode|evolution|\d+\.\d+)|do\s+anything\s+now`},
				{ID: "jail.god-mode", Regex: `god\s+mode`},
				{ID: "jail.dev-mode", Regex: `developer\s+mode|modo\s+desenvolvedor|modo\s+desarrollador|mode\s+d(é|e)veloppeur`},
				{ID: "jail.now-in-mode", Regex: `you\s+are\s+now\s+in\s+\S+\s+mode`},
				{ID: "jail.persona", Regex: `assum(e|a)\s+persona|you\s+are\s+NEMESIS`},
				{ID: "jail.unrestricted", Regex: `(AI|IA)\s+(without|sem)\s+restri(ctions|ç(õ|o)es)`},
				{ID: "jail.admin-override", Regex: `administrative\s+override|maintenance\s+mode`},
				{ID: "jail.red-team", Regex: `authorized\s+red\s+team|red\s+team\s+autorizado`},
				{ID: "jail.no-ethics", Regex: `without\s+ethical\s+(restrictions|limits)|sem\s+restriç(õ|o)es\s+(é|e)ticas`},
			},
		},
	},
}
