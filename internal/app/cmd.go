package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandStdio はMCPサーバーとして標準入出力で待ち受けることを示す。
	CommandStdio Command = "stdio"
	// CommandServe はHTTP APIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandStdioを返す。
// MCPクライアントは引数なしでプロセスを起動するため、stdioを既定とする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandStdio
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandStdio
	}
}
