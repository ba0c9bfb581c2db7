package app

// Command はaircncバイナリの起動モード。
type Command string

const (
	// CommandServe はHTTP APIを起動する。
	CommandServe Command = "serve"
	// CommandWorker は予約状態の整合ジョブと通知キューの購読を起動する。
	CommandWorker Command = "worker"
	// CommandMigrate はPostgreSQLのマイグレーションを適用する。MongoDBでは何もしない。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は /health を叩いて終了する。distrolessイメージのHEALTHCHECK用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は先頭の引数から起動モードを決める。
// 引数なし、または未知のモードはCommandServeとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	if cmd, ok := commands[args[0]]; ok {
		return cmd
	}
	return CommandServe
}
