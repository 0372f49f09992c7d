package websocket

// Сообщения, которые присылают клиенты
const (
	// EventHostJoin - ведущий открывает пульт игры {gameId}
	EventHostJoin = "host:join"
	// EventHostLeave - ведущий закрывает пульт
	EventHostLeave = "host:leave"
	// EventHostRequestLiveTeams - ведущий запрашивает список команд онлайн {gameId}
	EventHostRequestLiveTeams = "host:requestLiveTeams"
	// EventTeamJoin - команда входит в лобби игры {gameId, teamId}
	EventTeamJoin = "team:join"
	// EventTeamLeaveLobby - команда покидает лобби
	EventTeamLeaveLobby = "team:leave_lobby"
	// EventUserHeartbeat - проверка соединения
	EventUserHeartbeat = "user:heartbeat"
)

// Сообщения, которые отправляет сервер
const (
	EventLiveTeams       = "liveTeams"
	EventTeamJoined      = "team:joined"
	EventTeamLeft        = "team:left"
	EventServerError     = "server:error"
	EventServerHeartbeat = "server:heartbeat"
)
