package dev

import "strings"

// ClientScript is the JavaScript for live reload, injected into rendered
// pages in development mode.
const ClientScript = `<script>
(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + '/_prerend/reload');

        ws.onopen = function() {
            console.log('[prerend] Live reload connected');
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'reload':
                    console.log('[prerend] Reloading...');
                    location.reload();
                    break;

                case 'css':
                    console.log('[prerend] Reloading CSS...');
                    reloadCSS();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function reloadCSS() {
        var links = document.querySelectorAll('link[rel="stylesheet"]');
        links.forEach(function(link) {
            var url = new URL(link.href);
            url.searchParams.set('_reload', Date.now());
            link.href = url.toString();
        });
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>`

// InjectScript inserts the reload client script before </body>.
// HTML without a closing body tag gets the script appended.
func InjectScript(html string) string {
	idx := strings.LastIndex(html, "</body>")
	if idx == -1 {
		return html + "\n" + ClientScript
	}
	return html[:idx] + ClientScript + "\n" + html[idx:]
}
