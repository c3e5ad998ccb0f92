// Package server は TCP 接続を受け付けてワーカープールに渡すディスパッチャと、
// 1接続分のリクエスト処理を提供する。
//
// Server は単一のゴルーチンで接続を順番に Accept し、接続ごとに
// Handler.ServeConn を呼ぶジョブをプールへ投入する。ジョブの完了は待たない。
//
// Handler は空行までリクエストを行単位で読み、最初の行だけを見て
// 応答するファイルを決める:
//
//	GET / HTTP/1.1       -> 200 OK, hello.html
//	GET /sleep HTTP/1.1  -> SleepDelay だけ待ってから 200 OK, hello.html
//	それ以外             -> 404 NOT FOUND, 404.html
//
// 応答は "<status-line>\r\nContent-Length: <n>\r\n\r\n<body>" の形式。
// 何も読めなかった接続には何も書かない。I/O エラーはその接続だけの失敗として
// 記録し、プロセスとプールには影響させない。
package server
